// Package ratelimit throttles callers with sliding windows kept in redis.
package ratelimit

import (
	"context"
	"time"
)

// Config bounds requests per window. A zero limit disables that window.
type Config struct {
	RequestsPerMinute int
	RequestsPerHour   int
}

func (c Config) IsEnabled() bool {
	return c.RequestsPerMinute > 0 || c.RequestsPerHour > 0
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, cfg Config) (bool, error)
	Count(ctx context.Context, key string, window time.Duration) (int64, error)
	Reset(ctx context.Context, key string) error
}
