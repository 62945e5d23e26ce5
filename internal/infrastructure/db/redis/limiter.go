package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
)

// Limiter enforces fixed-window counters in Redis, so every replica of
// the service shares one view of an attacker's budget.
// Window semantics: INCR, with the TTL set on the first hit only.
type Limiter struct {
	client *redis.Client
	prefix string
	max    int64
	window time.Duration
}

func NewLimiter(client *redis.Client, prefix string, max int64, window time.Duration) *Limiter {
	if prefix == "" {
		prefix = "rl"
	}
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Limiter{client: client, prefix: prefix, max: max, window: window}
}

func (l *Limiter) key(k string) string {
	return l.prefix + ":" + k
}

// Check reports whether the key has budget left without spending any.
func (l *Limiter) Check(ctx context.Context, key string) error {
	count, err := l.client.Get(ctx, l.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("rate check: %w", err)
	}
	if count >= l.max {
		return domain.ErrRateLimitExceeded
	}
	return nil
}

// RecordFailure burns one unit of budget and returns the running count.
func (l *Limiter) RecordFailure(ctx context.Context, key string) (int64, error) {
	return l.increment(ctx, l.key(key))
}

// RecordSuccess clears the counter: a legitimate user who finally got
// their password right starts fresh.
func (l *Limiter) RecordSuccess(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("rate reset: %w", err)
	}
	return nil
}

// Allow is the combined increment-and-check used per request for general
// API throttling.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	count, err := l.increment(ctx, l.key(key))
	if err != nil {
		return err
	}
	if count > l.max {
		return domain.ErrRateLimitExceeded
	}
	return nil
}

func (l *Limiter) increment(ctx context.Context, key string) (int64, error) {
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("rate increment: %w", err)
	}
	// First hit opens the window.
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return 0, fmt.Errorf("rate expire: %w", err)
		}
	}
	return count, nil
}
