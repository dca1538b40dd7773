package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// KeyVerificationEmail holds the address awaiting email confirmation.
const KeyVerificationEmail = "verificationEmail"

var (
	// ErrUnavailable wraps every backend read/write failure.
	ErrUnavailable = errors.New("credential store unavailable")
	// ErrInvalidKey is returned for empty keys.
	ErrInvalidKey = errors.New("credential store key is empty")
)

// Store is durable key/value persistence. Get reports ok=false for a missing
// key. Delete of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Backend names a Store implementation selectable from configuration.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendFile   Backend = "file"
	BackendRedis  Backend = "redis"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend     Backend
	FilePath    string
	RedisURL    string
	RedisPrefix string
}

// Open builds the Store described by opts. The returned close function
// releases backend resources and is never nil.
func Open(ctx context.Context, opts Options) (Store, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), noop, nil
	case BackendFile:
		s, err := NewFileStore(opts.FilePath)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case BackendRedis:
		client, err := newRedisClient(ctx, opts.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return NewRedisStore(client, opts.RedisPrefix), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown credential store backend %q", opts.Backend)
	}
}

func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("redis url is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping redis: %v", ErrUnavailable, err)
	}
	return client, nil
}

func checkKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}
