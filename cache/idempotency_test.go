package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

// startRedisContainer is the same setup the teacher runs for its outbox
// integration tests, trimmed to the one thing this package needs: an
// address to point a redis.Client at.
func startRedisContainer(t *testing.T) string {
	ctx := context.Background()

	container, err := redis.RunContainer(ctx,
		testcontainers.WithImage("docker.io/redis:7"),
		redis.WithSnapshotting(10, 1),
		redis.WithLogLevel(redis.LogLevelVerbose),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	return strings.Replace(uri, "redis://", "", 1)
}

func redisAddr(t *testing.T) string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return startRedisContainer(t)
}

func TestRedisIdempotencyCache_PutThenGetRoundTrips(t *testing.T) {
	c := NewRedisIdempotencyCache(redisAddr(t))
	ctx := context.Background()

	require.NoError(t, c.PutOrderID(ctx, "key-1", 42, time.Minute))

	orderID, ok, err := c.GetOrderID(ctx, "key-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 42, orderID)
}

func TestRedisIdempotencyCache_UnknownKeyMisses(t *testing.T) {
	c := NewRedisIdempotencyCache(redisAddr(t))

	_, ok, err := c.GetOrderID(context.Background(), "never-put")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisIdempotencyCache_ExpiresAfterTTL(t *testing.T) {
	c := NewRedisIdempotencyCache(redisAddr(t))
	ctx := context.Background()

	require.NoError(t, c.PutOrderID(ctx, "key-ttl", 7, 50*time.Millisecond))
	time.Sleep(150 * time.Millisecond)

	_, ok, err := c.GetOrderID(ctx, "key-ttl")
	require.NoError(t, err)
	require.False(t, ok, "entry should have expired")
}
