package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// Service guards a Store behind a readiness gate. Every operation fails
// with ErrNotReady until Start has created the configured collections.
type Service struct {
	store       Store
	collections []string
	vectorSize  int
	logger      *zap.Logger
	ready       atomic.Bool
}

// NewService wraps store. collections are ensured by Start.
func NewService(store Store, collections []string, vectorSize int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:       store,
		collections: collections,
		vectorSize:  vectorSize,
		logger:      logger,
	}
}

// Start creates missing collections and marks the service ready.
// Calling Start again is a no-op.
func (s *Service) Start(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}
	for _, name := range s.collections {
		exists, err := s.store.CollectionExists(ctx, name)
		if err != nil {
			return fmt.Errorf("checking collection %s: %w", name, err)
		}
		if exists {
			continue
		}
		if err := s.store.CreateCollection(ctx, name, s.vectorSize); err != nil && !errors.Is(err, ErrCollectionExists) {
			return fmt.Errorf("creating collection %s: %w", name, err)
		}
	}
	s.ready.Store(true)
	setReady(true)
	s.logger.Info("vector store ready", zap.Strings("collections", s.collections))
	return nil
}

// Ready reports whether Start has completed.
func (s *Service) Ready() bool {
	return s.ready.Load()
}

func (s *Service) check() error {
	if !s.ready.Load() {
		return ErrNotReady
	}
	return nil
}

// CreateCollection implements Store.
func (s *Service) CreateCollection(ctx context.Context, collection string, vectorSize int) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.store.CreateCollection(ctx, collection, vectorSize)
}

// DeleteCollection implements Store.
func (s *Service) DeleteCollection(ctx context.Context, collection string) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.store.DeleteCollection(ctx, collection)
}

// CollectionExists implements Store.
func (s *Service) CollectionExists(ctx context.Context, collection string) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	return s.store.CollectionExists(ctx, collection)
}

// ListCollections implements Store.
func (s *Service) ListCollections(ctx context.Context) ([]string, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.store.ListCollections(ctx)
}

// AddDocuments implements Store.
func (s *Service) AddDocuments(ctx context.Context, collection string, docs []Document) ([]string, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.store.AddDocuments(ctx, collection, docs)
}

// UpdateDocuments implements Store.
func (s *Service) UpdateDocuments(ctx context.Context, collection string, docs []Document) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.store.UpdateDocuments(ctx, collection, docs)
}

// DeleteDocuments implements Store.
func (s *Service) DeleteDocuments(ctx context.Context, collection string, ids []string) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.store.DeleteDocuments(ctx, collection, ids)
}

// Search implements Store.
func (s *Service) Search(ctx context.Context, collection, query string, opts SearchOptions) ([]SearchResult, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.store.Search(ctx, collection, query, opts)
}

// Count implements Store.
func (s *Service) Count(ctx context.Context, collection string) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	return s.store.Count(ctx, collection)
}

// Close marks the service not ready and closes the store.
func (s *Service) Close() error {
	s.ready.Store(false)
	setReady(false)
	return s.store.Close()
}

var _ Store = (*Service)(nil)
