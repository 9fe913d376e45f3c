package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProviderConfig
		wantDim int
		wantErr bool
	}{
		{
			name:    "tei",
			cfg:     ProviderConfig{Provider: "tei", BaseURL: "http://localhost:8080", Model: "BAAI/bge-small-en-v1.5"},
			wantDim: 384,
		},
		{
			name:    "tei without base URL",
			cfg:     ProviderConfig{Provider: "tei", Model: "BAAI/bge-small-en-v1.5"},
			wantErr: true,
		},
		{
			name:    "openai compatible server",
			cfg:     ProviderConfig{Provider: "openai", BaseURL: "http://localhost:8081/v1", Model: "text-embedding-3-small"},
			wantDim: 1536,
		},
		{
			name:    "openai without key or base URL",
			cfg:     ProviderConfig{Provider: "openai"},
			wantErr: true,
		},
		{
			name:    "unknown",
			cfg:     ProviderConfig{Provider: "word2vec"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errdefs.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			defer p.Close()
			assert.Equal(t, tt.wantDim, p.Dimension())
		})
	}
}

func TestDimensionForModel(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"BAAI/bge-small-en-v1.5", 384},
		{"BAAI/bge-base-en-v1.5", 768},
		{"sentence-transformers/all-MiniLM-L6-v2", 384},
		{"text-embedding-3-large", 3072},
		{"acme/some-large-model", 1024},
		{"acme/some-base-model", 768},
		{"unknown", 384},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, DimensionForModel(tt.model))
		})
	}
}
