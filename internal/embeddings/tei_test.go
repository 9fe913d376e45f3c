package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
)

func newTEIServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req teiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Truncate)

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte("model overloaded"))
			return
		}
		out := make([][]float32, len(req.Inputs))
		for i := range req.Inputs {
			out[i] = []float32{float32(len(req.Inputs[i])), 1, 0}
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTEIProvider_EmbedDocuments(t *testing.T) {
	srv := newTEIServer(t, http.StatusOK)
	p, err := NewTEIProvider(TEIConfig{BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	vectors, err := p.EmbedDocuments(context.Background(), []string{"a", "abc"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(3), vectors[1][0])
}

func TestTEIProvider_EmbedQuery(t *testing.T) {
	srv := newTEIServer(t, http.StatusOK)
	p, err := NewTEIProvider(TEIConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	v, err := p.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 1, 0}, v)

	_, err = p.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, errdefs.ErrValidation)
}

func TestTEIProvider_ServerError(t *testing.T) {
	srv := newTEIServer(t, http.StatusServiceUnavailable)
	p, err := NewTEIProvider(TEIConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.EmbedDocuments(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.ErrorIs(t, err, errdefs.ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "model overloaded")
}
