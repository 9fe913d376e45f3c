package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
)

// RedisConfig configures the shared store.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`

	// ScanCount is the COUNT hint for SCAN in Keys.
	ScanCount int64 `koanf:"scan_count"`
}

// RedisStore implements Store on Redis.
type RedisStore struct {
	client    *redis.Client
	scanCount int64
	logger    *zap.Logger
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w: %w", cfg.Addr, errdefs.ErrUpstreamUnavailable, err)
	}

	scan := cfg.ScanCount
	if scan <= 0 {
		scan = 100
	}
	logger.Info("redis store connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return &RedisStore{client: client, scanCount: scan, logger: logger}, nil
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

// Set implements Store.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Expire implements Store. A non-positive ttl persists the key.
func (r *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	var (
		ok  bool
		err error
	)
	if ttl <= 0 {
		ok, err = r.client.Persist(ctx, key).Result()
		if err == nil && !ok {
			// PERSIST returns false for keys without a TTL too.
			n, existsErr := r.client.Exists(ctx, key).Result()
			if existsErr != nil {
				return fmt.Errorf("redis exists %s: %w", key, existsErr)
			}
			ok = n > 0
		}
	} else {
		ok, err = r.client.Expire(ctx, key, ttl).Result()
	}
	if err != nil {
		return fmt.Errorf("redis expire %s: %w", key, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// TTL implements Store.
func (r *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ttl %s: %w", key, err)
	}
	switch {
	case d == -2 || d == -2*time.Second:
		return 0, ErrNotFound
	case d < 0:
		return 0, nil
	}
	return d, nil
}

// Keys implements Store using SCAN so large keyspaces do not block the
// server.
func (r *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, scanPattern(prefix), r.scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
		}
		for _, k := range batch {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// scanPattern matches keys starting with prefix, taken literally.
func scanPattern(prefix string) string {
	var b strings.Builder
	for _, c := range prefix {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	b.WriteByte('*')
	return b.String()
}

// Close implements Store.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
