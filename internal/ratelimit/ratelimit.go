// Package ratelimit provides a fixed-window counter on Redis, used to cap
// how many interviews a user may generate per day.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultLimit  = 5
	DefaultWindow = 24 * time.Hour
)

// Store counts hits within a rolling window. Hit returns the count after
// incrementing and the time until the window resets.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, reset time.Duration, err error)
}

type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisStore(r redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{redis: r, prefix: prefix}
}

func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	fullKey := fmt.Sprintf("%s:ratelimit:%s", s.prefix, key)

	count, err := s.redis.Incr(ctx, fullKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("increment rate limit counter: %w", err)
	}

	// First hit opens the window.
	if count == 1 {
		if err := s.redis.Expire(ctx, fullKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("set rate limit window: %w", err)
		}
		return count, window, nil
	}

	reset, err := s.redis.TTL(ctx, fullKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("read rate limit window: %w", err)
	}
	// A counter without a TTL would never reset. Re-arm it.
	if reset < 0 {
		if err := s.redis.Expire(ctx, fullKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("repair rate limit window: %w", err)
		}
		reset = window
	}

	return count, reset, nil
}

type Config struct {
	Store  Store
	Limit  int64
	Window time.Duration
}

type Limiter struct {
	store  Store
	limit  int64
	window time.Duration
}

func NewLimiter(c Config) *Limiter {
	l := &Limiter{
		store:  c.Store,
		limit:  c.Limit,
		window: c.Window,
	}

	if l.limit <= 0 {
		l.limit = DefaultLimit
	}
	if l.window <= 0 {
		l.window = DefaultWindow
	}

	return l
}

type Result struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Allow consumes one unit of the user's quota. The hit is counted even when
// the request is rejected, matching the fixed-window behavior where hammering
// a full window does not extend it but does not refund either.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	count, reset, err := l.store.Hit(ctx, key, l.window)
	if err != nil {
		return Result{}, err
	}

	r := Result{
		Allowed: count <= l.limit,
		Limit:   l.limit,
		ResetAt: time.Now().Add(reset),
	}
	if remaining := l.limit - count; remaining > 0 {
		r.Remaining = remaining
	}
	if !r.Allowed {
		r.RetryAfter = reset
	}

	return r, nil
}
