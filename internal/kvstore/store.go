package kvstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
)

// ErrNotFound is returned by Get, Expire and TTL for absent or expired keys.
var ErrNotFound = fmt.Errorf("key not found: %w", errdefs.ErrNotFound)

// ErrClosed is returned after Close.
var ErrClosed = fmt.Errorf("store is closed: %w", errdefs.ErrNotInitialized)

// Store is a keyed byte store with per-key expiry.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Expire resets the remaining lifetime of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL reports the remaining lifetime of key, zero when it never expires.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Keys lists live keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases the backend.
	Close() error
}

// Backend names accepted by Config.Backend.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Backend string       `koanf:"backend"`
	Redis   RedisConfig  `koanf:"redis"`
	Badger  BadgerConfig `koanf:"badger"`
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case "", BackendMemory:
		return nil
	case BackendBadger:
		if !c.Badger.InMemory && c.Badger.Path == "" {
			return fmt.Errorf("badger path is required: %w", errdefs.ErrConfiguration)
		}
		return nil
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required: %w", errdefs.ErrConfiguration)
		}
		return nil
	default:
		return fmt.Errorf("unknown kvstore backend %q: %w", c.Backend, errdefs.ErrConfiguration)
	}
}

// New opens the backend named by cfg.Backend.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Backend) {
	case BackendBadger:
		return NewBadgerStore(cfg.Badger, logger)
	case BackendRedis:
		return NewRedisStore(ctx, cfg.Redis, logger)
	default:
		return NewMemoryStore(), nil
	}
}
