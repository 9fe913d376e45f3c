package vectorstore

import (
	"context"
	"fmt"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = fmt.Errorf("collection not found: %w", errdefs.ErrNotFound)

	// ErrDocumentNotFound is returned by UpdateDocuments for unknown ids.
	ErrDocumentNotFound = fmt.Errorf("document not found: %w", errdefs.ErrNotFound)

	// ErrCollectionExists is returned when creating an existing collection.
	ErrCollectionExists = fmt.Errorf("collection already exists: %w", errdefs.ErrValidation)

	// ErrNotReady is returned by Service before Start completes.
	ErrNotReady = fmt.Errorf("vector store not ready: %w", errdefs.ErrNotInitialized)

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = fmt.Errorf("invalid vector store configuration: %w", errdefs.ErrConfiguration)

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = fmt.Errorf("empty or nil documents: %w", errdefs.ErrValidation)

	// ErrInvalidQuery is an empty query or non-positive TopK.
	ErrInvalidQuery = fmt.Errorf("invalid search query: %w", errdefs.ErrValidation)

	// ErrDimensionMismatch is an embedding whose length differs from the collection's.
	ErrDimensionMismatch = fmt.Errorf("embedding dimension mismatch: %w", errdefs.ErrValidation)

	// ErrConnectionFailed indicates gRPC connection issues.
	ErrConnectionFailed = fmt.Errorf("failed to connect to qdrant: %w", errdefs.ErrUpstreamUnavailable)

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = fmt.Errorf("failed to generate embeddings: %w", errdefs.ErrUpstreamUnavailable)

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = fmt.Errorf("invalid collection name: %w", errdefs.ErrValidation)
)

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Document is a unit of stored content. Metadata values are scalars
// (string, bool, int, int64, float64).
type Document struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Collection string         `json:"collection,omitempty"`
}

// SearchResult is a ranked match.
type SearchResult struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchOptions controls Search.
type SearchOptions struct {
	// TopK is the maximum number of results.
	TopK int `json:"top_k"`

	// MinScore drops results scoring below it.
	MinScore float32 `json:"min_score,omitempty"`

	// Filter restricts candidates by metadata.
	Filter *Filter `json:"filter,omitempty"`
}

// Store is the interface for vector storage operations.
type Store interface {
	// CreateCollection creates a cosine collection for vectors of vectorSize.
	// A vectorSize of 0 uses the store's configured size.
	CreateCollection(ctx context.Context, collection string, vectorSize int) error

	// DeleteCollection deletes a collection and its documents.
	DeleteCollection(ctx context.Context, collection string) error

	// CollectionExists reports whether the collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// ListCollections returns all collection names, sorted.
	ListCollections(ctx context.Context) ([]string, error)

	// AddDocuments embeds and stores docs, returning their ids. Documents
	// without an id get a generated one.
	AddDocuments(ctx context.Context, collection string, docs []Document) ([]string, error)

	// UpdateDocuments replaces existing documents. Every id must exist.
	UpdateDocuments(ctx context.Context, collection string, docs []Document) error

	// DeleteDocuments removes documents by id. Unknown ids are ignored.
	DeleteDocuments(ctx context.Context, collection string, ids []string) error

	// Search returns up to TopK documents by descending score.
	Search(ctx context.Context, collection, query string, opts SearchOptions) ([]SearchResult, error)

	// Count returns the number of documents in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Close releases the backend.
	Close() error
}
