package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/kvstore"
)

// Source records which tier produced a vector.
type Source string

const (
	SourceL1    Source = "cache-L1"
	SourceL2    Source = "cache-L2"
	SourceModel Source = "model"
)

// Result is one embedded text.
type Result struct {
	Vector    []float32 `json:"vector"`
	Dimension int       `json:"dimension"`
	Source    Source    `json:"source"`
	Cached    bool      `json:"cached"`
	Key       string    `json:"key"`
}

// PipelineConfig configures caching and batching.
type PipelineConfig struct {
	// Model namespaces cache keys so switching models never serves stale vectors.
	Model string `koanf:"model"`

	// MaxInputChars truncates input (in runes) before hashing.
	MaxInputChars int `koanf:"max_input_chars"`

	L1Size int           `koanf:"l1_size"`
	L1TTL  time.Duration `koanf:"l1_ttl"`

	L2TTL    time.Duration `koanf:"l2_ttl"`
	L2Prefix string        `koanf:"l2_prefix"`

	// BatchSize is the number of misses sent per model call.
	BatchSize int `koanf:"batch_size"`

	// MaxConcurrency bounds concurrent model calls in EmbedBatch.
	MaxConcurrency int `koanf:"max_concurrency"`
}

// DefaultPipelineConfig returns sensible defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Model:          DefaultModel,
		MaxInputChars:  2048,
		L1Size:         1000,
		L1TTL:          time.Hour,
		L2TTL:          7 * 24 * time.Hour,
		L2Prefix:       "emb:",
		BatchSize:      32,
		MaxConcurrency: 4,
	}
}

func (c *PipelineConfig) applyDefaults() {
	d := DefaultPipelineConfig()
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.MaxInputChars <= 0 {
		c.MaxInputChars = d.MaxInputChars
	}
	if c.L1Size <= 0 {
		c.L1Size = d.L1Size
	}
	if c.L1TTL <= 0 {
		c.L1TTL = d.L1TTL
	}
	if c.L2TTL <= 0 {
		c.L2TTL = d.L2TTL
	}
	if c.L2Prefix == "" {
		c.L2Prefix = d.L2Prefix
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = d.MaxConcurrency
	}
}

// Stats are lookup counters since start.
type Stats struct {
	L1Hits      int64 `json:"l1_hits"`
	L2Hits      int64 `json:"l2_hits"`
	Misses      int64 `json:"misses"`
	CacheErrors int64 `json:"cache_errors"`
}

// Pipeline embeds text through L1, L2 and the model.
type Pipeline struct {
	provider Provider
	l1       *expirable.LRU[string, []float32]
	l2       kvstore.Store
	config   PipelineConfig
	logger   *zap.Logger
	metrics  *Metrics
	tracer   trace.Tracer

	l1Hits, l2Hits, misses, cacheErrors atomic.Int64
}

// NewPipeline wraps provider with the cache tiers. l2 may be nil, in
// which case only L1 is used.
func NewPipeline(provider Provider, l2 kvstore.Store, cfg PipelineConfig, logger *zap.Logger) (*Pipeline, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: embedding provider is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()

	return &Pipeline{
		provider: provider,
		l1:       expirable.NewLRU[string, []float32](cfg.L1Size, nil, cfg.L1TTL),
		l2:       l2,
		config:   cfg,
		logger:   logger,
		metrics:  NewMetrics(logger),
		tracer:   otel.Tracer(instrumentationName),
	}, nil
}

// Dimension reports the provider's dimension.
func (p *Pipeline) Dimension() int { return p.provider.Dimension() }

// Stats returns lookup counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		L1Hits:      p.l1Hits.Load(),
		L2Hits:      p.l2Hits.Load(),
		Misses:      p.misses.Load(),
		CacheErrors: p.cacheErrors.Load(),
	}
}

// Truncate cuts text to the configured rune limit.
func (p *Pipeline) Truncate(text string) string {
	if utf8.RuneCountInString(text) <= p.config.MaxInputChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:p.config.MaxInputChars])
}

// CacheKey is the hex SHA-256 of model and truncated text.
func (p *Pipeline) CacheKey(truncated string) string {
	h := sha256.New()
	h.Write([]byte(p.config.Model))
	h.Write([]byte{0})
	h.Write([]byte(truncated))
	return hex.EncodeToString(h.Sum(nil))
}

// Embed returns the vector for one text.
func (p *Pipeline) Embed(ctx context.Context, text string) (Result, error) {
	results, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

// EmbedBatch embeds texts preserving order. Cache lookups happen for all
// inputs first; distinct misses go to the model in BatchSize chunks run
// concurrently.
func (p *Pipeline) EmbedBatch(ctx context.Context, texts []string) ([]Result, error) {
	ctx, span := p.tracer.Start(ctx, "embeddings.embed_batch")
	defer span.End()
	span.SetAttributes(attribute.Int("embeddings.count", len(texts)))

	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	results := make([]Result, len(texts))
	pending := make(map[string][]int)
	var missKeys []string
	var missTexts []string

	for i, text := range texts {
		if text == "" {
			err := fmt.Errorf("%w: text %d is empty", ErrEmptyInput, i)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		truncated := p.Truncate(text)
		key := p.CacheKey(truncated)

		if vec, source, ok := p.lookup(ctx, key); ok {
			results[i] = Result{Vector: vec, Dimension: len(vec), Source: source, Cached: true, Key: key}
			continue
		}
		if _, seen := pending[key]; !seen {
			missKeys = append(missKeys, key)
			missTexts = append(missTexts, truncated)
		}
		pending[key] = append(pending[key], i)
	}

	if len(missTexts) > 0 {
		vectors, err := p.generate(ctx, missTexts)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		for j, key := range missKeys {
			vec := Normalize(vectors[j])
			p.store(ctx, key, vec)
			for n, i := range pending[key] {
				out := vec
				if n > 0 {
					out = append([]float32(nil), vec...)
				}
				results[i] = Result{Vector: out, Dimension: len(out), Source: SourceModel, Key: key}
			}
			p.misses.Add(1)
			p.metrics.RecordLookup(ctx, SourceModel)
		}
	}

	span.SetAttributes(attribute.Int("embeddings.misses", len(missTexts)))
	span.SetStatus(codes.Ok, "")
	return results, nil
}

// lookup checks L1 then L2. L2 hits are promoted into L1.
func (p *Pipeline) lookup(ctx context.Context, key string) ([]float32, Source, bool) {
	if vec, ok := p.l1.Get(key); ok {
		p.l1Hits.Add(1)
		p.metrics.RecordLookup(ctx, SourceL1)
		return append([]float32(nil), vec...), SourceL1, true
	}
	if p.l2 == nil {
		return nil, "", false
	}

	data, err := p.l2.Get(ctx, p.config.L2Prefix+key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			p.cacheFailure(ctx, "get", key, err)
		}
		return nil, "", false
	}
	vec, err := decodeVector(data)
	if err != nil {
		p.cacheFailure(ctx, "decode", key, err)
		return nil, "", false
	}

	p.l1.Add(key, vec)
	p.l2Hits.Add(1)
	p.metrics.RecordLookup(ctx, SourceL2)
	return append([]float32(nil), vec...), SourceL2, true
}

func (p *Pipeline) store(ctx context.Context, key string, vec []float32) {
	p.l1.Add(key, append([]float32(nil), vec...))
	if p.l2 == nil {
		return
	}
	if err := p.l2.Set(ctx, p.config.L2Prefix+key, encodeVector(vec), p.config.L2TTL); err != nil {
		p.cacheFailure(ctx, "set", key, err)
	}
}

func (p *Pipeline) cacheFailure(ctx context.Context, op, key string, err error) {
	p.cacheErrors.Add(1)
	p.metrics.RecordCacheError(ctx, op)
	p.logger.Warn("embedding cache failure, treating as miss",
		zap.String("operation", op),
		zap.String("key", key),
		zap.Error(err),
	)
}

// generate calls the model for texts in BatchSize chunks, at most
// MaxConcurrency at a time, and returns vectors in input order.
func (p *Pipeline) generate(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.MaxConcurrency)

	for start := 0; start < len(texts); start += p.config.BatchSize {
		end := min(start+p.config.BatchSize, len(texts))
		offset, chunk := start, texts[start:end]

		g.Go(func() error {
			began := time.Now()
			out, err := p.provider.EmbedDocuments(gctx, chunk)
			p.metrics.RecordGeneration(gctx, p.config.Model, "embed_batch", time.Since(began), len(chunk), err)
			if err != nil {
				if errors.Is(err, ErrEmbeddingFailed) {
					return fmt.Errorf("embedding %d texts: %w", len(chunk), err)
				}
				return fmt.Errorf("%w: embedding %d texts: %w", ErrEmbeddingFailed, len(chunk), err)
			}
			if len(out) != len(chunk) {
				return fmt.Errorf("%w: model returned %d vectors for %d texts", ErrEmbeddingFailed, len(out), len(chunk))
			}
			copy(vectors[offset:], out)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// EmbedDocuments implements vectorstore.Embedder through the cache.
func (p *Pipeline) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	results, err := p.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(results))
	for i, r := range results {
		out[i] = r.Vector
	}
	return out, nil
}

// EmbedQuery implements vectorstore.Embedder through the cache.
func (p *Pipeline) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	r, err := p.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return r.Vector, nil
}

// Close releases the provider. The L2 store is owned by the caller.
func (p *Pipeline) Close() error {
	p.l1.Purge()
	return p.provider.Close()
}

// encodeVector writes v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt cached vector of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
