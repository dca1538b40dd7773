package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the fixed-window budget shared by every scope of a Limiter.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Limiter counts attempts per scope and identifier in Redis.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, prefix string, cfg Config) *Limiter {
	if prefix == "" {
		prefix = "acs"
	}
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

// Allow records one attempt and returns ErrRateLimited once the window budget
// is exhausted. A non-positive MaxAttempts disables the limiter.
func (l *Limiter) Allow(ctx context.Context, scope, identifier string) error {
	if l == nil || l.config.MaxAttempts <= 0 {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, l.key(scope, identifier), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter for scope and identifier.
func (l *Limiter) Reset(ctx context.Context, scope, identifier string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(scope, identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(scope, identifier string) string {
	return l.prefix + ":rl:" + scope + ":" + strings.ToLower(strings.TrimSpace(identifier))
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
