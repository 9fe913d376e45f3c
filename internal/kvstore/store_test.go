package kvstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
)

// runStoreSuite exercises the Store contract against one backend.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, err, errdefs.ErrNotFound)
	})

	t.Run("set get overwrite", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "k", []byte("v1"), 0))
		require.NoError(t, s.Set(ctx, "k", []byte("v2"), 0))

		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Hour))
		require.NoError(t, s.Delete(ctx, "k"))
		require.NoError(t, s.Delete(ctx, "k"))

		_, err := s.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ttl and expire", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Hour))

		ttl, err := s.TTL(ctx, "k")
		require.NoError(t, err)
		assert.Greater(t, ttl, 50*time.Minute)
		assert.LessOrEqual(t, ttl, time.Hour)

		require.NoError(t, s.Expire(ctx, "k", 48*time.Hour))
		ttl, err = s.TTL(ctx, "k")
		require.NoError(t, err)
		assert.Greater(t, ttl, 47*time.Hour)

		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)

		assert.ErrorIs(t, s.Expire(ctx, "missing", time.Hour), ErrNotFound)
		_, err = s.TTL(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("no expiry", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "forever", []byte("v"), 0))
		ttl, err := s.TTL(ctx, "forever")
		require.NoError(t, err)
		assert.Zero(t, ttl)
	})

	t.Run("keys by prefix", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{"session:b", "session:a", "emb:x"} {
			require.NoError(t, s.Set(ctx, k, []byte("v"), time.Hour))
		}

		keys, err := s.Keys(ctx, "session:")
		require.NoError(t, err)
		assert.Equal(t, []string{"session:a", "session:b"}, keys)

		keys, err = s.Keys(ctx, "nothing:")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("prefix is literal", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{"a*:1", "ab:2", "a?:3", "[x]:4", "x:5"} {
			require.NoError(t, s.Set(ctx, k, []byte("v"), time.Hour))
		}

		keys, err := s.Keys(ctx, "a*")
		require.NoError(t, err)
		assert.Equal(t, []string{"a*:1"}, keys)

		keys, err = s.Keys(ctx, "a?")
		require.NoError(t, err)
		assert.Equal(t, []string{"a?:3"}, keys)

		keys, err = s.Keys(ctx, "[x]")
		require.NoError(t, err)
		assert.Equal(t, []string{"[x]:4"}, keys)
	})
}

func TestScanPattern(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"session:", "session:*"},
		{"", "*"},
		{"a*b", `a\*b*`},
		{"q?", `q\?*`},
		{"[x]", `\[x\]*`},
		{`back\slash`, `back\\slash*`},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.want, scanPattern(tt.prefix))
		})
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s := NewMemoryStore()
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestMemoryStore_ExpiredKeyIsGone(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.Set(ctx, "short", []byte("v"), 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, err := s.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)
	keys, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())
	_, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBadgerStore_InMemory(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := NewBadgerStore(BadgerConfig{InMemory: true}, zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewBadgerStore(BadgerConfig{Path: dir, SyncWrites: true}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "checkpoint:1", []byte(`{"a":1}`), time.Hour))
	require.NoError(t, s.Close())

	s, err = NewBadgerStore(BadgerConfig{Path: dir}, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "checkpoint:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := NewRedisStore(context.Background(), RedisConfig{Addr: addr, DB: 15}, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, s.client.FlushDB(context.Background()).Err())
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default memory", Config{}, false},
		{"badger in memory", Config{Backend: "badger", Badger: BadgerConfig{InMemory: true}}, false},
		{"badger no path", Config{Backend: "badger"}, true},
		{"redis no addr", Config{Backend: "redis"}, true},
		{"unknown", Config{Backend: "etcd"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, errdefs.ErrConfiguration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_Memory(t *testing.T) {
	s, err := New(context.Background(), Config{Backend: "memory"}, nil)
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.(*MemoryStore)
	assert.True(t, ok)
}
