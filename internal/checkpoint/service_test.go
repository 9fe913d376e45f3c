package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/kvstore"
)

func newTestService(t *testing.T) (Service, kvstore.Store) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	svc, err := NewService(nil, store, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, store
}

type sessionSnapshot struct {
	SessionID      string   `json:"session_id"`
	Topic          string   `json:"topic"`
	QuestionsAsked int      `json:"questions_asked"`
	CorrectAnswers int      `json:"correct_answers"`
	History        []string `json:"history"`
}

func TestDefaultServiceConfig(t *testing.T) {
	cfg := DefaultServiceConfig()
	assert.Equal(t, 7*24*time.Hour, cfg.TTL)
	assert.Equal(t, "checkpoint:", cfg.KeyPrefix)
}

func TestNewService_RequiresStore(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kv store is required")
}

func TestService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	in := sessionSnapshot{
		SessionID:      "s-1",
		Topic:          "Python",
		QuestionsAsked: 4,
		CorrectAnswers: 3,
		History:        []string{"hi", "hello"},
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	require.NoError(t, svc.Save(ctx, "s-1", raw, Metadata{Version: 7}))

	cp, err := svc.Load(ctx, "s-1")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "s-1", cp.ID)
	assert.Equal(t, int64(7), cp.Metadata.Version)
	assert.False(t, cp.Metadata.Timestamp.IsZero())
	assert.Greater(t, cp.TTL, 6*24*time.Hour)

	var out sessionSnapshot
	require.NoError(t, json.Unmarshal(cp.State, &out))
	assert.Equal(t, in, out)
}

func TestService_LoadMissingIsNotAnError(t *testing.T) {
	svc, _ := newTestService(t)

	cp, err := svc.Load(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, cp)
}

type failingStore struct {
	kvstore.Store
}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection reset")
}

func TestService_LoadReadFailureIsAnError(t *testing.T) {
	svc, err := NewService(nil, failingStore{kvstore.NewMemoryStore()}, zap.NewNop())
	require.NoError(t, err)

	cp, err := svc.Load(context.Background(), "s-1")
	require.Error(t, err)
	assert.Nil(t, cp)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestService_OverwriteKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	first := time.Now().Add(-time.Hour).UTC()
	require.NoError(t, svc.Save(ctx, "s-1", json.RawMessage(`{"n":1}`), Metadata{Timestamp: first, Version: 1}))
	require.NoError(t, svc.Save(ctx, "s-1", json.RawMessage(`{"n":2}`), Metadata{Version: 2}))

	cp, err := svc.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":2}`, string(cp.State))
	assert.Equal(t, int64(2), cp.Metadata.Version)
	assert.True(t, cp.CreatedAt.Equal(first))
}

func TestService_SaveRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	require.NoError(t, svc.Save(ctx, "s-1", json.RawMessage(`{}`), Metadata{}))
	require.NoError(t, store.Expire(ctx, "checkpoint:s-1", time.Minute))

	require.NoError(t, svc.Save(ctx, "s-1", json.RawMessage(`{}`), Metadata{}))
	ttl, err := store.TTL(ctx, "checkpoint:s-1")
	require.NoError(t, err)
	assert.Greater(t, ttl, 6*24*time.Hour)
}

func TestService_SaveValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	err := svc.Save(ctx, "", json.RawMessage(`{}`), Metadata{})
	assert.ErrorIs(t, err, errdefs.ErrValidation)

	err = svc.Save(ctx, "s-1", json.RawMessage(`{not json`), Metadata{})
	assert.Error(t, err)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	require.NoError(t, svc.Save(ctx, "s-1", json.RawMessage(`{}`), Metadata{}))
	require.NoError(t, svc.Delete(ctx, "s-1"))
	require.NoError(t, svc.Delete(ctx, "s-1"))

	cp, err := svc.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestService_ExtendTTL(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	require.NoError(t, svc.Save(ctx, "s-1", json.RawMessage(`{}`), Metadata{}))
	require.NoError(t, svc.ExtendTTL(ctx, "s-1", 30*24*time.Hour))

	ttl, err := store.TTL(ctx, "checkpoint:s-1")
	require.NoError(t, err)
	assert.Greater(t, ttl, 29*24*time.Hour)

	err = svc.ExtendTTL(ctx, "missing", time.Hour)
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	require.NoError(t, svc.Save(ctx, "user1-a", json.RawMessage(`{}`), Metadata{}))
	require.NoError(t, svc.Save(ctx, "user1-b", json.RawMessage(`{}`), Metadata{}))
	require.NoError(t, svc.Save(ctx, "user2-a", json.RawMessage(`{}`), Metadata{}))
	require.NoError(t, store.Set(ctx, "emb:unrelated", []byte("x"), 0))

	ids, err := svc.List(ctx, "user1-")
	require.NoError(t, err)
	assert.Equal(t, []string{"user1-a", "user1-b"}, ids)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestService_Archive(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	archive := kvstore.NewMemoryStore()
	defer archive.Close()

	require.NoError(t, svc.Save(ctx, "s-1", json.RawMessage(`{"topic":"Go"}`), Metadata{Version: 3}))
	require.NoError(t, svc.Archive(ctx, "s-1", archive))

	data, err := archive.Get(ctx, "archive:checkpoint:s-1")
	require.NoError(t, err)
	var cp Checkpoint
	require.NoError(t, json.Unmarshal(data, &cp))
	assert.JSONEq(t, `{"topic":"Go"}`, string(cp.State))

	ttl, err := archive.TTL(ctx, "archive:checkpoint:s-1")
	require.NoError(t, err)
	assert.Zero(t, ttl)

	assert.ErrorIs(t, svc.Archive(ctx, "missing", archive), ErrCheckpointNotFound)
}

func TestService_Closed(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Close())

	err := svc.Save(context.Background(), "s-1", json.RawMessage(`{}`), Metadata{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service is closed")
}
