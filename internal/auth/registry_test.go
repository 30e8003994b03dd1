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

func newTestRegistry(t *testing.T) (*SessionRegistry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionRegistry(client), mr
}

func TestRegistryRevoke(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	revoked, err := registry.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, registry.Revoke(ctx, "tok-1", time.Hour))

	revoked, err = registry.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestRegistryRevokeExpiredTokenNoop(t *testing.T) {
	registry, mr := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Revoke(ctx, "tok-old", -time.Minute))
	require.False(t, mr.Exists("revoked:tok-old"))
}

func TestRegistryEntryExpiresWithToken(t *testing.T) {
	registry, mr := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Revoke(ctx, "tok-2", time.Minute))
	mr.FastForward(2 * time.Minute)

	revoked, err := registry.IsRevoked(ctx, "tok-2")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRegistryRevokeAll(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	since, err := registry.ValidSince(ctx, 42)
	require.NoError(t, err)
	require.True(t, since.IsZero())

	require.NoError(t, registry.RevokeAll(ctx, 42, time.Hour))

	since, err = registry.ValidSince(ctx, 42)
	require.NoError(t, err)
	require.False(t, since.IsZero())
	require.WithinDuration(t, time.Now(), since, 5*time.Second)
}

func TestRegistryCutoffKeepsSubSecondPrecision(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	at := time.Date(2026, 3, 1, 12, 0, 30, 500_000_000, time.UTC)
	registry.now = func() time.Time { return at }

	require.NoError(t, registry.RevokeAll(ctx, 7, time.Hour))

	since, err := registry.ValidSince(ctx, 7)
	require.NoError(t, err)
	require.True(t, since.Equal(at), "cutoff %v lost precision vs %v", since, at)
}

func TestRegistryConcurrentRevokes(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, registry.Revoke(ctx, "shared-token", time.Hour))
		}()
	}
	wg.Wait()

	revoked, err := registry.IsRevoked(ctx, "shared-token")
	require.NoError(t, err)
	require.True(t, revoked)
}
