package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLimiter(t *testing.T) (*RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRateLimiter(client), mr
}

func TestRedisRateLimiter_Allow_PerMinute(t *testing.T) {
	limiter, _ := setupLimiter(t)
	ctx := context.Background()
	cfg := Config{RequestsPerMinute: 5}

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "analyst@acme.com", cfg)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "analyst@acme.com", cfg)
	require.NoError(t, err)
	assert.False(t, allowed, "6th request should be denied")

	allowed, err = limiter.Allow(ctx, "other@acme.com", cfg)
	require.NoError(t, err)
	assert.True(t, allowed, "keys are independent")
}

func TestRedisRateLimiter_WindowSlides(t *testing.T) {
	limiter, _ := setupLimiter(t)
	ctx := context.Background()
	cfg := Config{RequestsPerMinute: 2}

	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}
	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "k", cfg)
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, err := limiter.Allow(ctx, "k", cfg)
	require.NoError(t, err)
	assert.False(t, allowed)

	clock = clock.Add(61 * time.Second)
	allowed, err = limiter.Allow(ctx, "k", cfg)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_HourWindow(t *testing.T) {
	limiter, _ := setupLimiter(t)
	ctx := context.Background()
	cfg := Config{RequestsPerMinute: 10, RequestsPerHour: 3}

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "k", cfg)
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, err := limiter.Allow(ctx, "k", cfg)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRedisRateLimiter_CountAndReset(t *testing.T) {
	limiter, _ := setupLimiter(t)
	ctx := context.Background()
	cfg := Config{RequestsPerMinute: 10}

	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(ctx, "k", cfg)
		require.NoError(t, err)
		// Members are nanosecond timestamps; keep them distinct.
		time.Sleep(time.Millisecond)
	}
	n, err := limiter.Count(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, limiter.Reset(ctx, "k"))
	n, err = limiter.Count(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisRateLimiter_RedisDown(t *testing.T) {
	limiter, mr := setupLimiter(t)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "k", Config{RequestsPerMinute: 1})
	assert.Error(t, err)
}

func TestConfig_IsEnabled(t *testing.T) {
	assert.False(t, Config{}.IsEnabled())
	assert.True(t, Config{RequestsPerHour: 1}.IsEnabled())
}
