package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	revokedKeyPrefix   = "revoked:"
	userValidKeyPrefix = "uservalid:"
)

// SessionRegistry tracks revoked token ids and per-user "sessions valid
// since" timestamps in Redis. It holds no in-process state, so revocation
// is observed by every instance behind a load balancer.
type SessionRegistry struct {
	client *redis.Client

	now func() time.Time
}

// NewSessionRegistry constructs a SessionRegistry.
func NewSessionRegistry(client *redis.Client) *SessionRegistry {
	return &SessionRegistry{client: client, now: time.Now}
}

// Revoke inserts the token id with a TTL equal to the token's remaining
// lifetime, so the set is bounded by currently-valid-but-revoked tokens.
// A non-positive TTL means the token already expired and there is nothing
// to record.
func (r *SessionRegistry) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	key := revokedKeyPrefix + tokenID
	if err := r.client.Set(ctx, key, r.now().UTC().UnixNano(), ttl).Err(); err != nil {
		return fmt.Errorf("auth: revoke %s: %w", tokenID, err)
	}
	return nil
}

// IsRevoked reports whether the token id is in the revocation set. Both
// Revoke and IsRevoked hit the same key, so a completed revoke is always
// observed by a later check for that token id.
func (r *SessionRegistry) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("auth: check revoked %s: %w", tokenID, err)
	}
	return n > 0, nil
}

// RevokeAll records a per-user "sessions valid since" timestamp. Tokens
// issued before it are rejected without enumerating their ids. The
// cutoff is stored at nanosecond resolution: JWT issued-at claims are
// truncated to whole seconds, so a second-resolution cutoff would let a
// token issued earlier in the same second survive. The entry only needs
// to outlive the longest possible outstanding token, so it carries the
// token TTL.
func (r *SessionRegistry) RevokeAll(ctx context.Context, userID int64, tokenTTL time.Duration) error {
	key := userValidKeyPrefix + strconv.FormatInt(userID, 10)
	if err := r.client.Set(ctx, key, r.now().UTC().UnixNano(), tokenTTL).Err(); err != nil {
		return fmt.Errorf("auth: revoke all for user %d: %w", userID, err)
	}
	return nil
}

// ValidSince returns the cutoff before which tokens for the user are
// invalid, or the zero time when no forced revocation is recorded.
func (r *SessionRegistry) ValidSince(ctx context.Context, userID int64) (time.Time, error) {
	key := userValidKeyPrefix + strconv.FormatInt(userID, 10)
	raw, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("auth: valid since for user %d: %w", userID, err)
	}
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("auth: valid since for user %d: parse %q", userID, raw)
	}
	return time.Unix(0, nanos).UTC(), nil
}
