package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var chromemTracer = otel.Tracer("tutor.vectorstore.chromem")

// metadataJSONKey holds the typed metadata; the other keys are string
// copies used by chromem's where filter.
const metadataJSONKey = "_metadata_json"

// ChromemConfig holds configuration for the chromem-go embedded database.
type ChromemConfig struct {
	// Path is the persistence directory. Empty keeps everything in memory.
	Path string `koanf:"path"`

	// Compress enables gzip compression for persisted data.
	Compress bool `koanf:"compress"`

	// VectorSize is the default embedding dimension (default: 384).
	VectorSize int `koanf:"vector_size"`
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.VectorSize == 0 {
		c.VectorSize = 384
	}
}

// ChromemStore implements Store using chromem-go. chromem performs exact
// (brute force) cosine search, which suits course-sized corpora.
type ChromemStore struct {
	db       *chromem.DB
	embedder Embedder
	config   ChromemConfig
	logger   *zap.Logger

	// sizes records the vector size per collection created by this process.
	sizes sync.Map

	// writeMu makes UpdateDocuments' delete+add atomic against other writers.
	writeMu sync.Mutex
}

// NewChromemStore opens a persistent database at config.Path, or an
// in-memory one when the path is empty.
func NewChromemStore(config ChromemConfig, embedder Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	if config.VectorSize < 0 {
		return nil, fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}

	var db *chromem.DB
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		path, err := expandPath(config.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", path, err)
		}
		db, err = chromem.NewPersistentDB(path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
		config.Path = path
	}

	logger.Info("chromem store initialized",
		zap.String("path", config.Path),
		zap.Bool("in_memory", config.Path == ""),
		zap.Int("vector_size", config.VectorSize),
	)

	return &ChromemStore{
		db:       db,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}, nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// embeddingFunc is handed to chromem so it never falls back to its
// default OpenAI embedder. Searches pass precomputed vectors.
func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

func (s *ChromemStore) collection(name string) (*chromem.Collection, error) {
	if err := ValidateCollectionName(name); err != nil {
		return nil, err
	}
	c := s.db.GetCollection(name, s.embeddingFunc())
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return c, nil
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// CreateCollection implements Store.
func (s *ChromemStore) CreateCollection(ctx context.Context, name string, vectorSize int) error {
	_, span := chromemTracer.Start(ctx, "ChromemStore.CreateCollection")
	defer span.End()
	span.SetAttributes(attribute.String("collection", name), attribute.Int("vector_size", vectorSize))

	if err := ValidateCollectionName(name); err != nil {
		return failSpan(span, err)
	}
	if vectorSize == 0 {
		vectorSize = s.config.VectorSize
	}
	if vectorSize < 0 {
		return failSpan(span, fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig))
	}
	if s.db.GetCollection(name, s.embeddingFunc()) != nil {
		return failSpan(span, fmt.Errorf("%w: %s", ErrCollectionExists, name))
	}

	md := map[string]string{"vector_size": fmt.Sprint(vectorSize), "distance": "cosine"}
	if _, err := s.db.CreateCollection(name, md, s.embeddingFunc()); err != nil {
		return failSpan(span, fmt.Errorf("creating collection %s: %w", name, err))
	}
	s.sizes.Store(name, vectorSize)

	span.SetStatus(codes.Ok, "")
	s.logger.Info("created chromem collection", zap.String("collection", name), zap.Int("vector_size", vectorSize))
	return nil
}

// DeleteCollection implements Store.
func (s *ChromemStore) DeleteCollection(ctx context.Context, name string) error {
	_, span := chromemTracer.Start(ctx, "ChromemStore.DeleteCollection")
	defer span.End()
	span.SetAttributes(attribute.String("collection", name))

	if _, err := s.collection(name); err != nil {
		return failSpan(span, err)
	}
	if err := s.db.DeleteCollection(name); err != nil {
		return failSpan(span, fmt.Errorf("deleting collection %s: %w", name, err))
	}
	s.sizes.Delete(name)
	span.SetStatus(codes.Ok, "")
	return nil
}

// CollectionExists implements Store.
func (s *ChromemStore) CollectionExists(_ context.Context, name string) (bool, error) {
	if err := ValidateCollectionName(name); err != nil {
		return false, err
	}
	return s.db.GetCollection(name, s.embeddingFunc()) != nil, nil
}

// ListCollections implements Store.
func (s *ChromemStore) ListCollections(_ context.Context) ([]string, error) {
	cols := s.db.ListCollections()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *ChromemStore) toChromemDocs(ctx context.Context, collection string, docs []Document) ([]chromem.Document, error) {
	texts := make([]string, len(docs))
	for i, d := range docs {
		if strings.TrimSpace(d.Content) == "" {
			return nil, fmt.Errorf("%w: document %d has no content", ErrEmptyDocuments, i)
		}
		texts[i] = d.Content
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d documents", ErrEmbeddingFailed, len(vectors), len(docs))
	}

	want, _ := s.sizes.Load(collection)
	out := make([]chromem.Document, len(docs))
	for i, d := range docs {
		if size, ok := want.(int); ok && len(vectors[i]) != size {
			return nil, fmt.Errorf("%w: collection %s expects %d, got %d", ErrDimensionMismatch, collection, size, len(vectors[i]))
		}
		md, err := encodeMetadata(d.Metadata)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", d.ID, err)
		}
		out[i] = chromem.Document{
			ID:        d.ID,
			Content:   d.Content,
			Metadata:  md,
			Embedding: vectors[i],
		}
	}
	return out, nil
}

// AddDocuments implements Store.
func (s *ChromemStore) AddDocuments(ctx context.Context, collection string, docs []Document) ([]string, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.AddDocuments")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("document_count", len(docs)))
	start := time.Now()

	if len(docs) == 0 {
		return nil, failSpan(span, ErrEmptyDocuments)
	}
	col, err := s.collection(collection)
	if err != nil {
		return nil, failSpan(span, err)
	}

	docs = append([]Document(nil), docs...)
	ids := make([]string, len(docs))
	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = uuid.NewString()
		}
		ids[i] = docs[i].ID
	}

	cdocs, err := s.toChromemDocs(ctx, collection, docs)
	if err != nil {
		return nil, failSpan(span, err)
	}

	s.writeMu.Lock()
	err = col.AddDocuments(ctx, cdocs, 1)
	s.writeMu.Unlock()
	observe("chromem", "add", start, err)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("adding documents: %w", err))
	}

	span.SetStatus(codes.Ok, "")
	s.logger.Debug("added documents", zap.String("collection", collection), zap.Int("count", len(docs)))
	return ids, nil
}

// UpdateDocuments replaces documents after checking each exists.
func (s *ChromemStore) UpdateDocuments(ctx context.Context, collection string, docs []Document) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.UpdateDocuments")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("document_count", len(docs)))
	start := time.Now()

	if len(docs) == 0 {
		return failSpan(span, ErrEmptyDocuments)
	}
	col, err := s.collection(collection)
	if err != nil {
		return failSpan(span, err)
	}

	cdocs, err := s.toChromemDocs(ctx, collection, docs)
	if err != nil {
		return failSpan(span, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ids := make([]string, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return failSpan(span, fmt.Errorf("%w: document %d has no id", ErrDocumentNotFound, i))
		}
		if _, err := col.GetByID(ctx, d.ID); err != nil {
			return failSpan(span, fmt.Errorf("%w: %s", ErrDocumentNotFound, d.ID))
		}
		ids[i] = d.ID
	}

	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return failSpan(span, fmt.Errorf("removing old documents: %w", err))
	}
	err = col.AddDocuments(ctx, cdocs, 1)
	observe("chromem", "update", start, err)
	if err != nil {
		return failSpan(span, fmt.Errorf("re-adding documents: %w", err))
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// DeleteDocuments implements Store.
func (s *ChromemStore) DeleteDocuments(ctx context.Context, collection string, ids []string) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.DeleteDocuments")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("id_count", len(ids)))

	col, err := s.collection(collection)
	if err != nil {
		return failSpan(span, err)
	}
	if len(ids) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return failSpan(span, fmt.Errorf("deleting documents: %w", err))
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// Search embeds the query and ranks documents. Equality conditions go to
// chromem's where filter; range conditions are applied afterwards over
// every equality match, so TopK is honored after filtering.
func (s *ChromemStore) Search(ctx context.Context, collection, query string, opts SearchOptions) ([]SearchResult, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Search")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("top_k", opts.TopK))
	start := time.Now()

	if err := validateSearch(collection, query, opts); err != nil {
		return nil, failSpan(span, err)
	}
	col, err := s.collection(collection)
	if err != nil {
		return nil, failSpan(span, err)
	}

	count := col.Count()
	if count == 0 {
		span.SetStatus(codes.Ok, "")
		return []SearchResult{}, nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err))
	}

	n := opts.TopK
	if opts.Filter != nil && len(opts.Filter.Ranges) > 0 {
		n = count
	}
	n = min(n, count)

	raw, err := col.QueryEmbedding(ctx, vector, n, opts.Filter.equalityStrings(), nil)
	observe("chromem", "search", start, err)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("querying collection %s: %w", collection, err))
	}

	results := make([]SearchResult, 0, len(raw))
	for _, r := range raw {
		md := decodeMetadata(r.Metadata)
		if !opts.Filter.Matches(md) {
			continue
		}
		results = append(results, SearchResult{
			ID:       r.ID,
			Content:  r.Content,
			Score:    scoreFromSimilarity(r.Similarity),
			Metadata: md,
		})
	}
	results = rankResults(results, opts.MinScore, opts.TopK)

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "")
	return results, nil
}

// Count implements Store.
func (s *ChromemStore) Count(_ context.Context, collection string) (int, error) {
	col, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

// Close implements Store. chromem persists on every write.
func (s *ChromemStore) Close() error {
	s.logger.Info("chromem store closed")
	return nil
}

// encodeMetadata stores scalars as strings for filtering plus a JSON copy
// that preserves their types.
func encodeMetadata(md map[string]any) (map[string]string, error) {
	if len(md) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(md)+1)
	for k, v := range md {
		if k == metadataJSONKey {
			return nil, fmt.Errorf("metadata key %q is reserved", k)
		}
		str, ok := formatScalar(v)
		if !ok {
			return nil, fmt.Errorf("metadata %q: value of type %T is not a scalar", k, v)
		}
		out[k] = str
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return nil, err
	}
	out[metadataJSONKey] = string(raw)
	return out, nil
}

func decodeMetadata(md map[string]string) map[string]any {
	if len(md) == 0 {
		return nil
	}
	if raw, ok := md[metadataJSONKey]; ok {
		var out map[string]any
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out
		}
	}
	out := make(map[string]any, len(md))
	for k, v := range md {
		if k != metadataJSONKey {
			out[k] = v
		}
	}
	return out
}

var _ Store = (*ChromemStore)(nil)
