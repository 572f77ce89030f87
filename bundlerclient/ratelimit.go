package bundlerclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/go-redis/redis_rate/v10"
)

// RedisRateLimiter throttles bundler calls client-side, ahead of whatever
// limit the bundler itself enforces (spec §11 supplement: callers sharing
// one bundler API key should not individually blow through its quota).
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
	key     string
	rate    redis_rate.Limit
}

// NewRedisRateLimiter builds a limiter allowing perSecond calls/second,
// tracked under key in the given Redis instance.
func NewRedisRateLimiter(client *redis.Client, key string, perSecond int) *RedisRateLimiter {
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(client),
		key:     key,
		rate:    redis_rate.PerSecond(perSecond),
	}
}

// Wait blocks (respecting ctx) until the next call is permitted under the
// configured rate.
func (l *RedisRateLimiter) Wait(ctx context.Context) error {
	for {
		res, err := l.limiter.Allow(ctx, l.key, l.rate)
		if err != nil {
			return fmt.Errorf("bundlerclient: rate limiter check: %w", err)
		}
		if res.Allowed > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(res.RetryAfter):
		}
	}
}
