package embeddings

import (
	"fmt"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = fmt.Errorf("empty or nil input texts: %w", errdefs.ErrValidation)

	// ErrDimensionMismatch is returned when comparing vectors of different length.
	ErrDimensionMismatch = fmt.Errorf("vector dimension mismatch: %w", errdefs.ErrValidation)

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = fmt.Errorf("invalid configuration: %w", errdefs.ErrConfiguration)

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = fmt.Errorf("embedding generation failed: %w", errdefs.ErrUpstreamUnavailable)
)
