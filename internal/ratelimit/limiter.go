// Package ratelimit provides the request rate limiting backing the
// gateway's 429 error leg. The Redis-backed limiter counts requests per
// client key in fixed windows; when Redis is not configured a no-op
// limiter is used and every request is allowed.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/howl/internal/observability"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config contains rate limiter settings.
type Config struct {
	RedisAddr      string `env:"REDIS_ADDR"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB"           envDefault:"0"`
	RequestsPerMin int    `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
}

// Enabled reports whether a Redis backend is configured.
func (c Config) Enabled() bool {
	return c.RedisAddr != ""
}

// NoopLimiter allows everything.
type NoopLimiter struct{}

// Allow implements Limiter.
func (NoopLimiter) Allow(_ context.Context, _ string) (bool, error) {
	return true, nil
}

// FixedWindow is a Redis-backed fixed-window counter limiter.
type FixedWindow struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewFixedWindow creates a fixed-window limiter over the given Redis client.
func NewFixedWindow(client *redis.Client, limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		client: client,
		limit:  limit,
		window: window,
	}
}

// NewLimiter builds a limiter from configuration (DI constructor). Without
// a Redis address the no-op limiter is returned.
func NewLimiter(cfg Config) Limiter {
	if !cfg.Enabled() {
		return NoopLimiter{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return NewFixedWindow(client, cfg.RequestsPerMin, time.Minute)
}

// Allow increments the counter for key in the current window. Redis
// failures fail open: the request is allowed and the failure is logged.
func (f *FixedWindow) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(f.window.Seconds()))

	count, err := f.client.Incr(ctx, windowKey).Result()
	if err != nil {
		observability.FromContext(ctx).Warn("rate limiter unavailable, allowing request",
			observability.Error(err),
		)
		return true, nil
	}

	if count == 1 {
		if err := f.client.Expire(ctx, windowKey, f.window).Err(); err != nil {
			observability.FromContext(ctx).Warn("failed to set rate limit window expiry",
				observability.Error(err),
			)
		}
	}

	return count <= int64(f.limit), nil
}
