package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	resetKeyPrefix     = "pwreset:"
	resetUserKeyPrefix = "pwreset:user:"
)

// issueResetScript replaces any outstanding token for the user before
// storing the new one, so at most one reset token is live per user.
var issueResetScript = redis.NewScript(`
local prev = redis.call('GET', KEYS[1])
if prev then
  redis.call('DEL', 'pwreset:' .. prev)
end
redis.call('SET', 'pwreset:' .. ARGV[1], ARGV[2], 'EX', tonumber(ARGV[3]))
redis.call('SET', KEYS[1], ARGV[1], 'EX', tonumber(ARGV[3]))
return 1
`)

// consumeResetScript atomically checks and marks a token consumed. The
// value is overwritten with a tombstone instead of deleted so a second
// consumer inside the token window sees "already used" rather than
// "unknown". Returns {1, user_id} on first consumption, {-1, ""} for an
// unknown or expired token, {-2, ""} for a tombstone.
var consumeResetScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
  return {-1, ""}
end
if string.sub(v, 1, 5) == 'used:' then
  return {-2, ""}
end
local ttl = redis.call('TTL', KEYS[1])
if ttl < 1 then
  ttl = 1
end
redis.call('SET', KEYS[1], 'used:' .. v, 'EX', ttl)
redis.call('DEL', 'pwreset:user:' .. v)
return {1, v}
`)

// ResetTokens manages single-use, expiring password-reset tokens in
// Redis. Issuance and consumption run as server-side scripts so
// concurrent calls cannot double-spend a token.
type ResetTokens struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResetTokens constructs a ResetTokens manager.
func NewResetTokens(client *redis.Client, ttl time.Duration) *ResetTokens {
	return &ResetTokens{client: client, ttl: ttl}
}

// TTL exposes the configured reset token lifetime.
func (m *ResetTokens) TTL() time.Duration {
	return m.ttl
}

// Request issues a fresh token for the user, invalidating any prior
// outstanding token.
func (m *ResetTokens) Request(ctx context.Context, userID int64) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)

	pointerKey := resetUserKeyPrefix + strconv.FormatInt(userID, 10)
	seconds := int(m.ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	if err := issueResetScript.Run(ctx, m.client,
		[]string{pointerKey},
		token, strconv.FormatInt(userID, 10), seconds,
	).Err(); err != nil {
		return "", fmt.Errorf("auth: store reset token: %w", err)
	}
	return token, nil
}

// Consume spends the token and returns the owning user id. Exactly one
// of any number of concurrent consumers succeeds; the rest observe
// ErrResetTokenUsed. Unknown and expired tokens are indistinguishable
// once Redis drops the key and both surface as ErrResetTokenInvalid.
func (m *ResetTokens) Consume(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrResetTokenInvalid
	}
	res, err := consumeResetScript.Run(ctx, m.client, []string{resetKeyPrefix + token}).Result()
	if err != nil {
		return 0, fmt.Errorf("auth: consume reset token: %w", err)
	}
	parts, ok := res.([]interface{})
	if !ok || len(parts) != 2 {
		return 0, fmt.Errorf("auth: consume reset token: unexpected reply %v", res)
	}
	code, _ := parts[0].(int64)
	switch code {
	case 1:
		raw, _ := parts[1].(string)
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("auth: consume reset token: bad user id %q", raw)
		}
		return userID, nil
	case -2:
		return 0, ErrResetTokenUsed
	default:
		return 0, ErrResetTokenInvalid
	}
}
