package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestResets(t *testing.T, ttl time.Duration) (*ResetTokens, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewResetTokens(client, ttl), mr
}

func TestResetTokenRoundTrip(t *testing.T) {
	resets, _ := newTestResets(t, 30*time.Minute)
	ctx := context.Background()

	token, err := resets.Request(ctx, 9)
	require.NoError(t, err)
	require.Len(t, token, 64)

	userID, err := resets.Consume(ctx, token)
	require.NoError(t, err)
	require.Equal(t, int64(9), userID)
}

func TestResetTokenSingleUse(t *testing.T) {
	resets, _ := newTestResets(t, 30*time.Minute)
	ctx := context.Background()

	token, err := resets.Request(ctx, 9)
	require.NoError(t, err)

	_, err = resets.Consume(ctx, token)
	require.NoError(t, err)

	_, err = resets.Consume(ctx, token)
	require.ErrorIs(t, err, ErrResetTokenUsed)
}

func TestResetTokenUnknown(t *testing.T) {
	resets, _ := newTestResets(t, 30*time.Minute)

	_, err := resets.Consume(context.Background(), "deadbeef")
	require.ErrorIs(t, err, ErrResetTokenInvalid)

	_, err = resets.Consume(context.Background(), "")
	require.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestResetTokenExpires(t *testing.T) {
	resets, mr := newTestResets(t, time.Minute)
	ctx := context.Background()

	token, err := resets.Request(ctx, 9)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = resets.Consume(ctx, token)
	require.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestResetNewRequestInvalidatesPriorToken(t *testing.T) {
	resets, _ := newTestResets(t, 30*time.Minute)
	ctx := context.Background()

	first, err := resets.Request(ctx, 9)
	require.NoError(t, err)
	second, err := resets.Request(ctx, 9)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = resets.Consume(ctx, first)
	require.ErrorIs(t, err, ErrResetTokenInvalid)

	userID, err := resets.Consume(ctx, second)
	require.NoError(t, err)
	require.Equal(t, int64(9), userID)
}

func TestResetTokenConcurrentConsume(t *testing.T) {
	resets, _ := newTestResets(t, 30*time.Minute)
	ctx := context.Background()

	token, err := resets.Request(ctx, 9)
	require.NoError(t, err)

	const workers = 10
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := resets.Consume(ctx, token)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, used int
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			require.ErrorIs(t, err, ErrResetTokenUsed)
			used++
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, workers-1, used)
}
