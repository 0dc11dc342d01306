//go:build integration

package ratelimit_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/magiclink/pkg/ratelimit"
	"github.com/dmitrymomot/magiclink/pkg/redis"
)

func newRedisLimiter(t *testing.T, cfg ratelimit.Config) *ratelimit.Redis {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}

	ctx := context.Background()
	client, err := redis.Open(ctx, redis.Config{URL: url, Attempts: 1})
	require.NoError(t, err, "failed to connect to Redis")
	t.Cleanup(func() { _ = client.Close() })

	l, err := ratelimit.NewRedis(client, cfg, ratelimit.WithPrefix("test-"+uuid.NewString()))
	require.NoError(t, err)
	return l
}

func TestRedis_Allow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := newRedisLimiter(t, ratelimit.Config{Limit: 2, Window: time.Minute})

	for range 2 {
		ok, err := l.Allow(ctx, "user@example.com")
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err := l.Allow(ctx, "user@example.com")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedis_WindowExpires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := newRedisLimiter(t, ratelimit.Config{Limit: 1, Window: 100 * time.Millisecond})

	ok, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		ok, err := l.Allow(ctx, "k")
		return err == nil && ok
	}, 2*time.Second, 50*time.Millisecond)
}
