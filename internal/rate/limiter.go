package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds frequency limiter tuning parameters.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Limiter enforces a per-origin request frequency budget using Redis
// counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a frequency [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Allow records one request for origin and reports whether the origin is
// still within its frequency budget for the current window.
func (l *Limiter) Allow(ctx context.Context, origin string) (bool, error) {
	count, err := l.incrementWithTTL(ctx, originKey(origin), l.config.Window)
	if err != nil {
		return false, err
	}
	if count > int64(l.config.MaxRequests) {
		return false, ErrRateLimited
	}
	return true, nil
}

// Count returns the current request counter for an origin. Missing keys
// return zero.
func (l *Limiter) Count(ctx context.Context, origin string) (int, error) {
	count, err := l.redis.Get(ctx, originKey(origin)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// Reset clears the frequency counter for an origin.
func (l *Limiter) Reset(ctx context.Context, origin string) error {
	if err := l.redis.Del(ctx, originKey(origin)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func originKey(origin string) string {
	return "qf:" + origin
}
