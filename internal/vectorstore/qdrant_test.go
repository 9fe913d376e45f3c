package vectorstore_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/vectorstore"
)

func TestValidateCollectionName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{name: "course content", input: "course_content"},
		{name: "digits", input: "python_101"},
		{name: "empty name", input: "", wantError: true},
		{name: "uppercase letters", input: "Course_Content", wantError: true},
		{name: "special characters", input: "course-content", wantError: true},
		{name: "too long", input: "a123456789012345678901234567890123456789012345678901234567890123456789", wantError: true},
		{name: "path traversal attempt", input: "../content", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vectorstore.ValidateCollectionName(tt.input)
			if tt.wantError {
				assert.ErrorIs(t, err, vectorstore.ErrInvalidCollectionName)
				assert.ErrorIs(t, err, errdefs.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQdrantConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		config    vectorstore.QdrantConfig
		wantError bool
	}{
		{name: "valid", config: vectorstore.QdrantConfig{Host: "localhost", Port: 6334, VectorSize: 384}},
		{name: "missing host", config: vectorstore.QdrantConfig{Port: 6334, VectorSize: 384}, wantError: true},
		{name: "bad port", config: vectorstore.QdrantConfig{Host: "localhost", Port: 70000, VectorSize: 384}, wantError: true},
		{name: "zero vector size", config: vectorstore.QdrantConfig{Host: "localhost", Port: 6334}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantError {
				assert.ErrorIs(t, err, errdefs.ErrConfiguration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQdrantConfig_ApplyDefaults(t *testing.T) {
	var cfg vectorstore.QdrantConfig
	cfg.ApplyDefaults()

	assert.Equal(t, 6334, cfg.Port)
	assert.Equal(t, 384, cfg.VectorSize)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 50*1024*1024, cfg.MaxMessageSize)
	assert.Equal(t, 5, cfg.CircuitBreakerThreshold)
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name          string
		code          codes.Code
		wantTransient bool
	}{
		{"unavailable is transient", codes.Unavailable, true},
		{"deadline exceeded is transient", codes.DeadlineExceeded, true},
		{"aborted is transient", codes.Aborted, true},
		{"resource exhausted is transient", codes.ResourceExhausted, true},
		{"invalid argument is not transient", codes.InvalidArgument, false},
		{"not found is not transient", codes.NotFound, false},
		{"permission denied is not transient", codes.PermissionDenied, false},
		{"unknown code defaults to not transient", codes.Unknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := status.Error(tt.code, "test error")
			assert.Equal(t, tt.wantTransient, vectorstore.IsTransientError(err))
		})
	}

	t.Run("non-grpc error is not transient", func(t *testing.T) {
		assert.False(t, vectorstore.IsTransientError(errors.New("regular error")))
	})

	t.Run("nil error is not transient", func(t *testing.T) {
		assert.False(t, vectorstore.IsTransientError(nil))
	})
}

// TestQdrantStore_Integration runs against a live Qdrant when
// TEST_QDRANT_HOST is set (gRPC port from TEST_QDRANT_PORT, default 6334).
func TestQdrantStore_Integration(t *testing.T) {
	host := os.Getenv("TEST_QDRANT_HOST")
	if host == "" {
		t.Skip("TEST_QDRANT_HOST not set")
	}
	port := 6334
	if p := os.Getenv("TEST_QDRANT_PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		require.NoError(t, err)
	}

	ctx := context.Background()
	store, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
		Host:       host,
		Port:       port,
		VectorSize: testDim,
	}, &bagEmbedder{dim: testDim}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	const collection = "tutor_integration_test"
	if exists, _ := store.CollectionExists(ctx, collection); exists {
		require.NoError(t, store.DeleteCollection(ctx, collection))
	}
	seed(t, store, collection)
	defer func() { _ = store.DeleteCollection(ctx, collection) }()

	n, err := store.Count(ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	results, err := store.Search(ctx, collection, "what is recursion when a function calls itself", vectorstore.SearchOptions{TopK: 3})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "rec-1", results[0].ID)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}

	f := vectorstore.NewFilterBuilder().Range("difficulty", vectorstore.Gte(3)).Build()
	results, err = store.Search(ctx, collection, "recursion", vectorstore.SearchOptions{TopK: 10, Filter: f})
	require.NoError(t, err)
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	assert.ElementsMatch(t, []string{"rec-2", "sql-1"}, ids)

	err = store.UpdateDocuments(ctx, collection, []vectorstore.Document{{ID: "missing", Content: "x"}})
	assert.ErrorIs(t, err, vectorstore.ErrDocumentNotFound)

	require.NoError(t, store.DeleteDocuments(ctx, collection, []string{"rec-1"}))
	n, err = store.Count(ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = store.Search(ctx, "tutor_missing_collection", "x", vectorstore.SearchOptions{TopK: 1})
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)
}
