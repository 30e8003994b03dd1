// Package ratelimit implements fixed-window request counting on Redis.
//
// Counters are keyed by endpoint class, caller identity and the
// wall-clock-aligned window start, so every process instance increments
// the same bucket. Fixed windows admit up to 2x the limit across a
// window boundary; that imprecision is accepted in exchange for a single
// atomic INCR per request.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Class identifies a group of endpoints sharing one quota.
type Class string

// Endpoint classes with distinct limits. Login is stricter to blunt
// credential brute force.
const (
	ClassLogin Class = "login"
	ClassAPI   Class = "api"
)

// Limit bounds request counts for one class.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result reports the outcome of a quota check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts requests in Redis fixed windows.
type Limiter struct {
	client *redis.Client
	limits map[Class]Limit

	now func() time.Time
}

// NewLimiter constructs a Limiter with per-class limits.
func NewLimiter(client *redis.Client, limits map[Class]Limit) *Limiter {
	return &Limiter{client: client, limits: limits, now: time.Now}
}

// Allow consumes one unit of quota for (class, identity). The increment
// and the expiry set run in one pipeline; concurrent first requests for
// a window race on the same key, so exactly one bucket exists and no
// increment is lost. The counter is not rolled back when a request is
// later aborted.
func (l *Limiter) Allow(ctx context.Context, class Class, identity string) (Result, error) {
	limit, ok := l.limits[class]
	if !ok || limit.Requests <= 0 {
		return Result{Allowed: true}, nil
	}

	now := l.now()
	windowStart := now.Truncate(limit.Window)
	key := fmt.Sprintf("rl:%s:%s:%d", class, identity, windowStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, limit.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("ratelimit: incr %s: %w", key, err)
	}

	count := int(incr.Val())
	if count > limit.Requests {
		retry := windowStart.Add(limit.Window).Sub(now)
		if retry < time.Second {
			retry = time.Second
		}
		return Result{Allowed: false, RetryAfter: retry}, nil
	}
	return Result{Allowed: true, Remaining: limit.Requests - count}, nil
}

// WindowFor exposes the configured window of a class, zero when unset.
func (l *Limiter) WindowFor(class Class) time.Duration {
	return l.limits[class].Window
}
