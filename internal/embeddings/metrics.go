package embeddings

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/PandyaSumit/mini--AI-tutor-sub008/internal/embeddings"

// Metrics holds embedding generation and cache metrics.
type Metrics struct {
	meter       metric.Meter
	logger      *zap.Logger
	duration    metric.Float64Histogram
	batchSize   metric.Int64Histogram
	errors      metric.Int64Counter
	cacheLookup metric.Int64Counter
	cacheErrors metric.Int64Counter
}

// NewMetrics creates a new Metrics instance for embeddings.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.duration, err = m.meter.Float64Histogram(
		"tutor.embedding.generation_duration_seconds",
		metric.WithDescription("Duration of model embedding calls by model and operation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.batchSize, err = m.meter.Int64Histogram(
		"tutor.embedding.batch_size",
		metric.WithDescription("Number of texts per model embedding call"),
		metric.WithUnit("{text}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50, 100, 250, 500),
	)
	if err != nil {
		m.logger.Warn("failed to create batch size histogram", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"tutor.embedding.errors_total",
		metric.WithDescription("Total model embedding errors by model and operation"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}

	m.cacheLookup, err = m.meter.Int64Counter(
		"tutor.embedding.lookups_total",
		metric.WithDescription("Embedding lookups by the tier that served them (cache-L1, cache-L2, model)"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		m.logger.Warn("failed to create lookup counter", zap.Error(err))
	}

	m.cacheErrors, err = m.meter.Int64Counter(
		"tutor.embedding.cache_errors_total",
		metric.WithDescription("L2 cache read/write failures absorbed as misses"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create cache error counter", zap.Error(err))
	}
}

// RecordGeneration records one model call.
func (m *Metrics) RecordGeneration(ctx context.Context, model, operation string, duration time.Duration, batchSize int, err error) {
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("operation", operation),
	)

	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), attrs)
	}
	if batchSize > 0 && m.batchSize != nil {
		m.batchSize.Record(ctx, int64(batchSize), attrs)
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, attrs)
	}
}

// RecordLookup records which tier served a text.
func (m *Metrics) RecordLookup(ctx context.Context, source Source) {
	if m.cacheLookup != nil {
		m.cacheLookup.Add(ctx, 1, metric.WithAttributes(attribute.String("source", string(source))))
	}
}

// RecordCacheError records an absorbed L2 failure.
func (m *Metrics) RecordCacheError(ctx context.Context, op string) {
	if m.cacheErrors != nil {
		m.cacheErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
	}
}
