package vectorstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/vectorstore"
)

func TestService_NotReadyBeforeStart(t *testing.T) {
	store := newTestChromemStore(t, "")
	svc := vectorstore.NewService(store, []string{"course_content"}, testDim, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Search(ctx, "course_content", "recursion", vectorstore.SearchOptions{TopK: 3})
	assert.ErrorIs(t, err, vectorstore.ErrNotReady)
	assert.ErrorIs(t, err, errdefs.ErrNotInitialized)

	_, err = svc.AddDocuments(ctx, "course_content", courseDocs())
	assert.ErrorIs(t, err, vectorstore.ErrNotReady)

	_, err = svc.Count(ctx, "course_content")
	assert.ErrorIs(t, err, vectorstore.ErrNotReady)
	assert.False(t, svc.Ready())
}

func TestService_StartCreatesCollections(t *testing.T) {
	store := newTestChromemStore(t, "")
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, "existing", testDim))

	svc := vectorstore.NewService(store, []string{"course_content", "existing"}, testDim, zap.NewNop())
	require.NoError(t, svc.Start(ctx))
	require.NoError(t, svc.Start(ctx))
	assert.True(t, svc.Ready())

	names, err := svc.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"course_content", "existing"}, names)

	ids, err := svc.AddDocuments(ctx, "course_content", courseDocs())
	require.NoError(t, err)
	assert.Len(t, ids, 4)

	results, err := svc.Search(ctx, "course_content", "SQL joins", vectorstore.SearchOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "sql-1", results[0].ID)

	_, err = svc.Search(ctx, "unknown", "SQL joins", vectorstore.SearchOptions{TopK: 1})
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)

	require.NoError(t, svc.Close())
	assert.False(t, svc.Ready())
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		cfg     vectorstore.Config
		wantErr bool
	}{
		{name: "default chromem", cfg: vectorstore.Config{VectorSize: testDim}},
		{name: "explicit chromem", cfg: vectorstore.Config{Provider: "chromem", Collections: []string{"course_content"}}},
		{name: "unknown provider", cfg: vectorstore.Config{Provider: "faiss"}, wantErr: true},
		{name: "bad collection", cfg: vectorstore.Config{Collections: []string{"Bad Name"}}, wantErr: true},
		{name: "qdrant without host", cfg: vectorstore.Config{Provider: "qdrant"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := vectorstore.NewStore(tt.cfg, &bagEmbedder{dim: testDim}, zap.NewNop())
			if tt.wantErr {
				assert.ErrorIs(t, err, errdefs.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, store.Close())
		})
	}
}
