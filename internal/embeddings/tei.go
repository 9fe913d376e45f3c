package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TEIConfig configures a Text Embeddings Inference endpoint.
type TEIConfig struct {
	// BaseURL is the TEI server, e.g. http://localhost:8080.
	BaseURL string
	// Model is informational; TEI serves one model per process.
	Model string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// Timeout bounds each HTTP call (default: 30s).
	Timeout time.Duration
}

// TEIProvider calls the TEI /embed endpoint. TEI mean-pools server side.
type TEIProvider struct {
	config    TEIConfig
	client    *http.Client
	dimension int
	metrics   *Metrics
}

// NewTEIProvider validates cfg and builds the HTTP client.
func NewTEIProvider(cfg TEIConfig) (*TEIProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: tei base URL required", ErrInvalidConfig)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &TEIProvider{
		config:    cfg,
		client:    &http.Client{Timeout: timeout},
		dimension: DimensionForModel(cfg.Model),
		metrics:   NewMetrics(zap.NewNop()),
	}, nil
}

type teiRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

func (p *TEIProvider) embed(ctx context.Context, op string, texts []string) (vectors [][]float32, err error) {
	start := time.Now()
	defer func() {
		p.metrics.RecordGeneration(ctx, p.config.Model, op, time.Since(start), len(texts), err)
	}()

	body, err := json.Marshal(teiRequest{Inputs: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d inputs", ErrEmbeddingFailed, len(vectors), len(texts))
	}
	return vectors, nil
}

// EmbedDocuments implements Provider.
func (p *TEIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	return p.embed(ctx, "embed_documents", texts)
}

// EmbedQuery implements Provider.
func (p *TEIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	vectors, err := p.embed(ctx, "embed_query", []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimension implements Provider.
func (p *TEIProvider) Dimension() int { return p.dimension }

// Close is a no-op; TEI is stateless HTTP.
func (p *TEIProvider) Close() error { return nil }
