package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/kvstore"
)

const instrumentationName = "github.com/PandyaSumit/mini--AI-tutor-sub008/internal/checkpoint"

// DefaultTTL is the checkpoint lifetime when Config.TTL is unset.
const DefaultTTL = 7 * 24 * time.Hour

// Service provides checkpoint persistence operations.
type Service interface {
	// Save overwrites the checkpoint for id and refreshes its TTL.
	Save(ctx context.Context, id string, state json.RawMessage, md Metadata) error

	// Load returns the checkpoint for id, or nil with a nil error when
	// none exists.
	Load(ctx context.Context, id string) (*Checkpoint, error)

	// Delete removes the checkpoint. Missing checkpoints are ignored.
	Delete(ctx context.Context, id string) error

	// ExtendTTL resets the remaining lifetime of an existing checkpoint.
	ExtendTTL(ctx context.Context, id string, ttl time.Duration) error

	// List returns the ids of live checkpoints whose id starts with prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Archive copies the checkpoint to longTerm without expiry.
	Archive(ctx context.Context, id string, longTerm kvstore.Store) error

	// Close closes the service. The underlying store is not closed.
	Close() error
}

// Config configures the checkpoint service.
type Config struct {
	// TTL is the checkpoint lifetime (default: 7 days).
	TTL time.Duration `koanf:"ttl"`

	// KeyPrefix namespaces checkpoint keys in a shared store.
	KeyPrefix string `koanf:"key_prefix"`

	// ArchivePrefix namespaces archived snapshots in the long-term store.
	ArchivePrefix string `koanf:"archive_prefix"`
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() *Config {
	return &Config{
		TTL:           DefaultTTL,
		KeyPrefix:     "checkpoint:",
		ArchivePrefix: "archive:checkpoint:",
	}
}

type service struct {
	config *Config
	store  kvstore.Store
	logger *zap.Logger

	tracer        trace.Tracer
	meter         metric.Meter
	saveCounter   metric.Int64Counter
	loadCounter   metric.Int64Counter
	deleteCounter metric.Int64Counter

	mu     sync.RWMutex
	closed bool
}

// NewService creates a checkpoint service over store.
func NewService(cfg *Config, store kvstore.Store, logger *zap.Logger) (Service, error) {
	if store == nil {
		return nil, errors.New("kv store is required")
	}
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "checkpoint:"
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = "archive:" + cfg.KeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &service{
		config: cfg,
		store:  store,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	s.initMetrics()

	return s, nil
}

func (s *service) initMetrics() {
	var err error

	s.saveCounter, err = s.meter.Int64Counter(
		"tutor.checkpoint.saves_total",
		metric.WithDescription("Total number of checkpoints saved"),
		metric.WithUnit("{save}"),
	)
	if err != nil {
		s.logger.Warn("failed to create save counter", zap.Error(err))
	}

	s.loadCounter, err = s.meter.Int64Counter(
		"tutor.checkpoint.loads_total",
		metric.WithDescription("Total number of checkpoint loads by outcome"),
		metric.WithUnit("{load}"),
	)
	if err != nil {
		s.logger.Warn("failed to create load counter", zap.Error(err))
	}

	s.deleteCounter, err = s.meter.Int64Counter(
		"tutor.checkpoint.deletes_total",
		metric.WithDescription("Total number of checkpoints deleted"),
		metric.WithUnit("{delete}"),
	)
	if err != nil {
		s.logger.Warn("failed to create delete counter", zap.Error(err))
	}
}

func (s *service) key(id string) string { return s.config.KeyPrefix + id }

func (s *service) checkOpen(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("service is closed")
	}
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}
	return nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Save overwrites the snapshot. CreatedAt survives overwrites so the
// checkpoint keeps its original creation time.
func (s *service) Save(ctx context.Context, id string, state json.RawMessage, md Metadata) error {
	ctx, span := s.tracer.Start(ctx, "checkpoint.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("checkpoint.id", id),
		attribute.Int64("checkpoint.version", md.Version),
	)

	if err := s.checkOpen(id); err != nil {
		return fail(span, err)
	}
	if !json.Valid(state) {
		return fail(span, fmt.Errorf("checkpoint %s: state is not valid JSON", id))
	}
	if md.Timestamp.IsZero() {
		md.Timestamp = time.Now().UTC()
	}

	createdAt := md.Timestamp
	if existing, err := s.read(ctx, id); err != nil {
		return fail(span, err)
	} else if existing != nil {
		createdAt = existing.CreatedAt
	}

	cp := Checkpoint{
		ID:        id,
		State:     state,
		Metadata:  md,
		CreatedAt: createdAt,
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fail(span, fmt.Errorf("encoding checkpoint %s: %w", id, err))
	}
	if err := s.store.Set(ctx, s.key(id), data, s.config.TTL); err != nil {
		return fail(span, fmt.Errorf("saving checkpoint %s: %w", id, err))
	}

	if s.saveCounter != nil {
		s.saveCounter.Add(ctx, 1)
	}
	s.logger.Debug("checkpoint saved",
		zap.String("checkpoint_id", id),
		zap.Int64("version", md.Version),
		zap.Int("bytes", len(data)),
	)
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *service) read(ctx context.Context, id string) (*Checkpoint, error) {
	data, err := s.store.Get(ctx, s.key(id))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint %s: %w", id, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decoding checkpoint %s: %w", id, err)
	}
	return &cp, nil
}

// Load implements Service.
func (s *service) Load(ctx context.Context, id string) (*Checkpoint, error) {
	ctx, span := s.tracer.Start(ctx, "checkpoint.load")
	defer span.End()
	span.SetAttributes(attribute.String("checkpoint.id", id))

	if err := s.checkOpen(id); err != nil {
		return nil, fail(span, err)
	}

	cp, err := s.read(ctx, id)
	outcome := "hit"
	switch {
	case err != nil:
		outcome = "error"
	case cp == nil:
		outcome = "miss"
	}
	if s.loadCounter != nil {
		s.loadCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if err != nil {
		return nil, fail(span, err)
	}
	if cp == nil {
		return nil, nil
	}

	ttl, err := s.store.TTL(ctx, s.key(id))
	if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		s.logger.Warn("failed to read checkpoint ttl", zap.String("checkpoint_id", id), zap.Error(err))
	}
	cp.TTL = ttl

	span.SetStatus(codes.Ok, "")
	return cp, nil
}

// Delete implements Service.
func (s *service) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "checkpoint.delete")
	defer span.End()
	span.SetAttributes(attribute.String("checkpoint.id", id))

	if err := s.checkOpen(id); err != nil {
		return fail(span, err)
	}
	if err := s.store.Delete(ctx, s.key(id)); err != nil {
		return fail(span, fmt.Errorf("deleting checkpoint %s: %w", id, err))
	}
	if s.deleteCounter != nil {
		s.deleteCounter.Add(ctx, 1)
	}
	s.logger.Debug("checkpoint deleted", zap.String("checkpoint_id", id))
	return nil
}

// ExtendTTL implements Service.
func (s *service) ExtendTTL(ctx context.Context, id string, ttl time.Duration) error {
	if err := s.checkOpen(id); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = s.config.TTL
	}
	err := s.store.Expire(ctx, s.key(id), ttl)
	if errors.Is(err, kvstore.ErrNotFound) {
		return fmt.Errorf("%s: %w", id, ErrCheckpointNotFound)
	}
	if err != nil {
		return fmt.Errorf("extending checkpoint %s: %w", id, err)
	}
	return nil
}

// List implements Service.
func (s *service) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, errors.New("service is closed")
	}

	keys, err := s.store.Keys(ctx, s.key(prefix))
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, s.config.KeyPrefix))
	}
	return ids, nil
}

// Archive implements Service. The archived copy never expires.
func (s *service) Archive(ctx context.Context, id string, longTerm kvstore.Store) error {
	ctx, span := s.tracer.Start(ctx, "checkpoint.archive")
	defer span.End()
	span.SetAttributes(attribute.String("checkpoint.id", id))

	if longTerm == nil {
		return fail(span, errors.New("long-term store is required"))
	}
	if err := s.checkOpen(id); err != nil {
		return fail(span, err)
	}

	data, err := s.store.Get(ctx, s.key(id))
	if errors.Is(err, kvstore.ErrNotFound) {
		return fail(span, fmt.Errorf("%s: %w", id, ErrCheckpointNotFound))
	}
	if err != nil {
		return fail(span, fmt.Errorf("reading checkpoint %s: %w", id, err))
	}
	if err := longTerm.Set(ctx, s.config.ArchivePrefix+id, data, 0); err != nil {
		return fail(span, fmt.Errorf("archiving checkpoint %s: %w", id, err))
	}

	s.logger.Info("checkpoint archived", zap.String("checkpoint_id", id))
	return nil
}

// Close implements Service.
func (s *service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
