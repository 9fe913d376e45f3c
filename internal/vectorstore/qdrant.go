package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var tracer = otel.Tracer("tutor.vectorstore.qdrant")

// Reserved payload keys.
const (
	payloadContent = "content"
	payloadID      = "id"
)

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string `koanf:"host"`

	// Port is the Qdrant gRPC port (6334), not the REST port.
	Port int `koanf:"port"`

	// APIKey authenticates against Qdrant Cloud.
	APIKey string `koanf:"api_key"`

	// VectorSize is the default embedding dimension for new collections.
	VectorSize int `koanf:"vector_size"`

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool `koanf:"use_tls"`

	// MaxRetries is the maximum number of retry attempts for transient failures.
	MaxRetries int `koanf:"max_retries"`

	// RetryBackoff is the initial backoff, doubled on each retry.
	RetryBackoff time.Duration `koanf:"retry_backoff"`

	// MaxMessageSize is the maximum gRPC message size in bytes.
	MaxMessageSize int `koanf:"max_message_size"`

	// CircuitBreakerThreshold is the number of failures before opening circuit.
	CircuitBreakerThreshold int `koanf:"circuit_breaker_threshold"`
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.VectorSize == 0 {
		c.VectorSize = 384
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = 5
	}
}

// IsTransientError reports whether a gRPC error is worth retrying.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	st, ok := status.FromError(err)
	if !ok {
		return false
	}

	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

func isNotFound(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == grpccodes.NotFound
}

// QdrantStore implements Store over Qdrant's native gRPC client.
// Document ids are mapped to deterministic UUIDv5 point ids; the caller's
// id is kept in the payload.
type QdrantStore struct {
	client   *qdrant.Client
	embedder Embedder
	config   QdrantConfig
	logger   *zap.Logger

	// sizes caches vector size per collection.
	sizes sync.Map

	circuitBreaker struct {
		failures int
		lastFail time.Time
		mu       sync.Mutex
	}
}

// NewQdrantStore connects to Qdrant and performs a health check.
func NewQdrantStore(config QdrantConfig, embedder Embedder, logger *zap.Logger) (*QdrantStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if !config.UseTLS {
		logger.Warn("qdrant gRPC using plaintext (TLS disabled)", zap.String("host", config.Host))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		APIKey: config.APIKey,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &QdrantStore{
		client:   client,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.healthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	logger.Info("qdrant store connected", zap.String("host", config.Host), zap.Int("port", config.Port))
	return store, nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStore) healthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.HealthCheck")
	defer span.End()

	if _, err := s.client.HealthCheck(ctx); err != nil {
		return failSpan(span, fmt.Errorf("health check failed: %w", err))
	}
	span.SetStatus(codes.Ok, "healthy")
	return nil
}

// retryOperation retries an operation with exponential backoff.
func (s *QdrantStore) retryOperation(ctx context.Context, operationName string, operation func() error) error {
	backoff := s.config.RetryBackoff

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			s.resetCircuitBreaker()
			return nil
		}

		if s.isCircuitOpen() {
			return fmt.Errorf("%s: circuit breaker open: %w", operationName, ErrConnectionFailed)
		}

		if !IsTransientError(err) {
			return err
		}

		s.recordFailure()

		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w: %v", operationName, s.config.MaxRetries, ErrConnectionFailed, err)
		}

		s.logger.Debug("retrying qdrant operation",
			zap.String("operation", operationName),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", operationName, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil
}

func (s *QdrantStore) recordFailure() {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()
	s.circuitBreaker.failures++
	s.circuitBreaker.lastFail = time.Now()
}

func (s *QdrantStore) resetCircuitBreaker() {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()
	s.circuitBreaker.failures = 0
}

func (s *QdrantStore) isCircuitOpen() bool {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()

	if s.circuitBreaker.failures >= s.config.CircuitBreakerThreshold {
		// Half-open after 30 seconds.
		if time.Since(s.circuitBreaker.lastFail) > 30*time.Second {
			s.circuitBreaker.failures = 0
			return false
		}
		return true
	}
	return false
}

// pointID maps a document id onto a stable Qdrant UUID.
func pointID(id string) *qdrant.PointId {
	if _, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(id)
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String())
}

// vectorSize returns the collection's vector size, fetching it once.
func (s *QdrantStore) vectorSize(ctx context.Context, collection string) (int, error) {
	if v, ok := s.sizes.Load(collection); ok {
		return v.(int), nil
	}
	var size int
	err := s.retryOperation(ctx, "get_collection_info", func() error {
		info, err := s.client.GetCollectionInfo(ctx, collection)
		if err != nil {
			return err
		}
		size = int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
		}
		return 0, fmt.Errorf("getting collection info for %s: %w", collection, err)
	}
	s.sizes.Store(collection, size)
	return size, nil
}

func (s *QdrantStore) toPoints(ctx context.Context, collection string, docs []Document) ([]*qdrant.PointStruct, error) {
	size, err := s.vectorSize(ctx, collection)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		if d.Content == "" {
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

	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		if size > 0 && len(vectors[i]) != size {
			return nil, fmt.Errorf("%w: collection %s expects %d, got %d", ErrDimensionMismatch, collection, size, len(vectors[i]))
		}
		payload, err := toPayload(d)
		if err != nil {
			return nil, err
		}
		points[i] = &qdrant.PointStruct{
			Id:      pointID(d.ID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload,
		}
	}
	return points, nil
}

func toPayload(d Document) (map[string]*qdrant.Value, error) {
	payload := map[string]*qdrant.Value{
		payloadContent: qdrant.NewValueString(d.Content),
		payloadID:      qdrant.NewValueString(d.ID),
	}
	for k, v := range d.Metadata {
		if k == payloadContent || k == payloadID {
			return nil, fmt.Errorf("document %s: metadata key %q is reserved: %w", d.ID, k, ErrInvalidQuery)
		}
		switch val := v.(type) {
		case string:
			payload[k] = qdrant.NewValueString(val)
		case int:
			payload[k] = qdrant.NewValueInt(int64(val))
		case int32:
			payload[k] = qdrant.NewValueInt(int64(val))
		case int64:
			payload[k] = qdrant.NewValueInt(val)
		case float32:
			payload[k] = qdrant.NewValueDouble(float64(val))
		case float64:
			payload[k] = qdrant.NewValueDouble(val)
		case bool:
			payload[k] = qdrant.NewValueBool(val)
		default:
			return nil, fmt.Errorf("document %s: metadata %q has non-scalar type %T: %w", d.ID, k, v, ErrInvalidQuery)
		}
	}
	return payload, nil
}

func fromPayload(payload map[string]*qdrant.Value) SearchResult {
	var r SearchResult
	if len(payload) == 0 {
		return r
	}
	md := make(map[string]any, len(payload))
	for k, v := range payload {
		switch val := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			switch k {
			case payloadContent:
				r.Content = val.StringValue
				continue
			case payloadID:
				r.ID = val.StringValue
				continue
			}
			md[k] = val.StringValue
		case *qdrant.Value_IntegerValue:
			md[k] = val.IntegerValue
		case *qdrant.Value_DoubleValue:
			md[k] = val.DoubleValue
		case *qdrant.Value_BoolValue:
			md[k] = val.BoolValue
		}
	}
	if len(md) > 0 {
		r.Metadata = md
	}
	return r
}

// toQdrantFilter translates a Filter into Qdrant must-conditions.
func toQdrantFilter(f *Filter) *qdrant.Filter {
	if f.IsEmpty() {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(f.Equals)+len(f.Ranges))
	for key, value := range f.Equals {
		switch v := value.(type) {
		case string:
			conditions = append(conditions, qdrant.NewMatch(key, v))
		case bool:
			conditions = append(conditions, qdrant.NewMatchBool(key, v))
		case int:
			conditions = append(conditions, qdrant.NewMatchInt(key, int64(v)))
		case int32:
			conditions = append(conditions, qdrant.NewMatchInt(key, int64(v)))
		case int64:
			conditions = append(conditions, qdrant.NewMatchInt(key, v))
		default:
			if fv, ok := toFloat(v); ok {
				conditions = append(conditions, qdrant.NewRange(key, &qdrant.Range{Gte: &fv, Lte: &fv}))
			}
		}
	}
	for key, r := range f.Ranges {
		conditions = append(conditions, qdrant.NewRange(key, &qdrant.Range{Gte: r.Gte, Lte: r.Lte}))
	}
	return &qdrant.Filter{Must: conditions}
}

// CreateCollection implements Store.
func (s *QdrantStore) CreateCollection(ctx context.Context, collection string, vectorSize int) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.CreateCollection")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("vector_size", vectorSize))

	if err := ValidateCollectionName(collection); err != nil {
		return failSpan(span, err)
	}
	if vectorSize == 0 {
		vectorSize = s.config.VectorSize
	}
	if vectorSize < 0 {
		return failSpan(span, fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig))
	}

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return failSpan(span, err)
	}
	if exists {
		return failSpan(span, fmt.Errorf("%w: %s", ErrCollectionExists, collection))
	}

	err = s.retryOperation(ctx, "create_collection", func() error {
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
	})
	if err != nil {
		return failSpan(span, fmt.Errorf("creating collection %s: %w", collection, err))
	}
	s.sizes.Store(collection, vectorSize)

	span.SetStatus(codes.Ok, "success")
	s.logger.Info("created qdrant collection", zap.String("collection", collection), zap.Int("vector_size", vectorSize))
	return nil
}

// DeleteCollection implements Store.
func (s *QdrantStore) DeleteCollection(ctx context.Context, collection string) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.DeleteCollection")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection))

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return failSpan(span, err)
	}
	if !exists {
		return failSpan(span, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection))
	}

	err = s.retryOperation(ctx, "delete_collection", func() error {
		return s.client.DeleteCollection(ctx, collection)
	})
	if err != nil {
		return failSpan(span, fmt.Errorf("deleting collection %s: %w", collection, err))
	}
	s.sizes.Delete(collection)

	span.SetStatus(codes.Ok, "success")
	return nil
}

// CollectionExists implements Store.
func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return false, err
	}
	var exists bool
	err := s.retryOperation(ctx, "collection_exists", func() error {
		var err error
		exists, err = s.client.CollectionExists(ctx, collection)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("checking collection %s: %w", collection, err)
	}
	return exists, nil
}

// ListCollections implements Store.
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.ListCollections")
	defer span.End()

	var names []string
	err := s.retryOperation(ctx, "list_collections", func() error {
		var err error
		names, err = s.client.ListCollections(ctx)
		return err
	})
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("listing collections: %w", err))
	}
	sort.Strings(names)

	span.SetAttributes(attribute.Int("collection_count", len(names)))
	span.SetStatus(codes.Ok, "success")
	return names, nil
}

// AddDocuments implements Store. Re-adding an id overwrites the point.
func (s *QdrantStore) AddDocuments(ctx context.Context, collection string, docs []Document) ([]string, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.AddDocuments")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("document_count", len(docs)))
	start := time.Now()

	if len(docs) == 0 {
		return nil, failSpan(span, ErrEmptyDocuments)
	}
	if err := ValidateCollectionName(collection); err != nil {
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

	points, err := s.toPoints(ctx, collection, docs)
	if err != nil {
		return nil, failSpan(span, err)
	}

	err = s.upsert(ctx, collection, points)
	observe("qdrant", "add", start, err)
	if err != nil {
		return nil, failSpan(span, err)
	}

	span.SetAttributes(attribute.Int("points_added", len(ids)))
	span.SetStatus(codes.Ok, "success")
	return ids, nil
}

func (s *QdrantStore) upsert(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	err := s.retryOperation(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
		}
		return fmt.Errorf("upserting points to collection %s: %w", collection, err)
	}
	return nil
}

// UpdateDocuments implements Store.
func (s *QdrantStore) UpdateDocuments(ctx context.Context, collection string, docs []Document) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.UpdateDocuments")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("document_count", len(docs)))
	start := time.Now()

	if len(docs) == 0 {
		return failSpan(span, ErrEmptyDocuments)
	}
	if err := ValidateCollectionName(collection); err != nil {
		return failSpan(span, err)
	}

	pointIDs := make([]*qdrant.PointId, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return failSpan(span, fmt.Errorf("%w: document %d has no id", ErrDocumentNotFound, i))
		}
		pointIDs[i] = pointID(d.ID)
	}

	var found []*qdrant.RetrievedPoint
	err := s.retryOperation(ctx, "get_points", func() error {
		var err error
		found, err = s.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: collection,
			Ids:            pointIDs,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return failSpan(span, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection))
		}
		return failSpan(span, fmt.Errorf("fetching points: %w", err))
	}
	present := make(map[string]bool, len(found))
	for _, p := range found {
		present[fromPayload(p.GetPayload()).ID] = true
	}
	for _, d := range docs {
		if !present[d.ID] {
			return failSpan(span, fmt.Errorf("%w: %s", ErrDocumentNotFound, d.ID))
		}
	}

	points, err := s.toPoints(ctx, collection, docs)
	if err != nil {
		return failSpan(span, err)
	}
	err = s.upsert(ctx, collection, points)
	observe("qdrant", "update", start, err)
	if err != nil {
		return failSpan(span, err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// DeleteDocuments implements Store.
func (s *QdrantStore) DeleteDocuments(ctx context.Context, collection string, ids []string) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.DeleteDocuments")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("id_count", len(ids)))

	if err := ValidateCollectionName(collection); err != nil {
		return failSpan(span, err)
	}
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	err := s.retryOperation(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         qdrant.NewPointsSelector(pointIDs...),
		})
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return failSpan(span, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection))
		}
		return failSpan(span, fmt.Errorf("deleting points: %w", err))
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Search implements Store.
func (s *QdrantStore) Search(ctx context.Context, collection, query string, opts SearchOptions) ([]SearchResult, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.Search")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("top_k", opts.TopK))
	start := time.Now()

	if err := validateSearch(collection, query, opts); err != nil {
		return nil, failSpan(span, err)
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err))
	}

	var points []*qdrant.ScoredPoint
	err = s.retryOperation(ctx, "search", func() error {
		var err error
		points, err = s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(opts.TopK)),
			WithPayload:    qdrant.NewWithPayload(true),
			Filter:         toQdrantFilter(opts.Filter),
		})
		return err
	})
	observe("qdrant", "search", start, err)
	if err != nil {
		if isNotFound(err) {
			return nil, failSpan(span, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection))
		}
		return nil, failSpan(span, fmt.Errorf("searching collection %s: %w", collection, err))
	}

	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		r := fromPayload(p.GetPayload())
		r.Score = scoreFromSimilarity(p.GetScore())
		results = append(results, r)
	}
	results = rankResults(results, opts.MinScore, opts.TopK)

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// Count implements Store.
func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return 0, err
	}
	var n uint64
	err := s.retryOperation(ctx, "count", func() error {
		var err error
		n, err = s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: collection,
			Exact:          qdrant.PtrOf(true),
		})
		return err
	})
	if err != nil {
		if isNotFound(err) || errors.Is(err, ErrCollectionNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
		}
		return 0, fmt.Errorf("counting points in %s: %w", collection, err)
	}
	return int(n), nil
}

var _ Store = (*QdrantStore)(nil)
