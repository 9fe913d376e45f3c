//go:build cgo

package embeddings

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutONNX(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping FastEmbed test in short mode")
	}
	if _, err := os.Stat("/usr/lib/libonnxruntime.so"); os.IsNotExist(err) && os.Getenv("ONNX_PATH") == "" {
		t.Skip("ONNX runtime not available, skipping FastEmbed test")
	}
}

func TestNewFastEmbedProvider_UnsupportedModel(t *testing.T) {
	_, err := NewFastEmbedProvider(FastEmbedConfig{Model: "acme/unknown"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFastEmbedProvider_Embed(t *testing.T) {
	skipWithoutONNX(t)

	p, err := NewFastEmbedProvider(FastEmbedConfig{CacheDir: t.TempDir()})
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, 384, p.Dimension())

	ctx := context.Background()
	docs, err := p.EmbedDocuments(ctx, []string{"recursion is a function calling itself", "hello"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Len(t, docs[0], 384)

	q, err := p.EmbedQuery(ctx, "what is recursion?")
	require.NoError(t, err)
	assert.Len(t, q, 384)
}
