package team

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/hunter/hunt"
)

// setupShared creates a Shared client with its own local registry on mr.
func setupShared(t *testing.T, mr *miniredis.Miniredis, namespace string) (*Shared, *hunt.Registry) {
	t.Helper()
	local := hunt.NewRegistry()
	s, err := NewShared(&redis.Options{Addr: mr.Addr()}, namespace, local, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, local
}

func startRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)
	return mr
}

func TestNewShared(t *testing.T) {
	t.Run("rejects empty namespace", func(t *testing.T) {
		_, err := NewShared(&redis.Options{Addr: "localhost:6379"}, "", hunt.NewRegistry(), 0, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "namespace cannot be empty")
	})

	t.Run("rejects missing registry", func(t *testing.T) {
		_, err := NewShared(&redis.Options{Addr: "localhost:6379"}, "ns", nil, 0, nil)
		assert.Error(t, err)
	})

	t.Run("pings", func(t *testing.T) {
		s, _ := setupShared(t, startRedis(t), "ns")
		assert.NoError(t, s.Ping(context.Background()))
	})
}

func TestShared_SyncAcrossProcesses(t *testing.T) {
	mr := startRedis(t)
	ctx := context.Background()
	a, localA := setupShared(t, mr, "ns")
	b, localB := setupShared(t, mr, "ns")

	require.NoError(t, a.Register(ctx, "g1", "snake-a"))
	require.NoError(t, b.Register(ctx, "g1", "snake-b"))

	assert.True(t, localA.IsOwn("g1", "snake-a"))
	assert.False(t, localA.IsOwn("g1", "snake-b"), "not synced yet")

	n, err := a.Sync(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, localA.IsOwn("g1", "snake-b"))

	_, err = b.Sync(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, localB.IsOwn("g1", "snake-a"))

	members, err := mr.Members(OwnKey("ns", "g1"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"snake-a", "snake-b"}, members)
}

func TestShared_NamespacesAreIsolated(t *testing.T) {
	mr := startRedis(t)
	ctx := context.Background()
	a, _ := setupShared(t, mr, "red")
	b, localB := setupShared(t, mr, "blue")

	require.NoError(t, a.Register(ctx, "g1", "snake-a"))
	n, err := b.Sync(ctx, "g1")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, localB.IsOwn("g1", "snake-a"))
}

func TestShared_ExpiryAndForget(t *testing.T) {
	mr := startRedis(t)
	ctx := context.Background()
	s, local := setupShared(t, mr, "ns")

	require.NoError(t, s.Register(ctx, "g1", "snake-a"))
	assert.True(t, mr.Exists(OwnKey("ns", "g1")))

	s.Forget("g1")
	assert.False(t, local.IsOwn("g1", "snake-a"))
	assert.True(t, mr.Exists(OwnKey("ns", "g1")), "shared set outlives a local Forget")

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists(OwnKey("ns", "g1")))
}

func TestShared_RedisDown(t *testing.T) {
	mr := startRedis(t)
	ctx := context.Background()
	s, local := setupShared(t, mr, "ns")
	mr.Close()

	err := s.Register(ctx, "g1", "snake-a")
	assert.Error(t, err)
	assert.True(t, local.IsOwn("g1", "snake-a"), "local registration survives a Redis failure")

	_, err = s.Sync(ctx, "g1")
	assert.Error(t, err)
}
