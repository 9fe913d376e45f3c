package vectorstore

import (
	"fmt"

	"go.uber.org/zap"
)

// Config selects and configures the vector store backend.
type Config struct {
	// Provider is "chromem" (default) or "qdrant".
	Provider string `koanf:"provider"`

	// Collections are created by Service.Start when missing.
	Collections []string `koanf:"collections"`

	// VectorSize is the dimension of collections created at start.
	VectorSize int `koanf:"vector_size"`

	Chromem ChromemConfig `koanf:"chromem"`
	Qdrant  QdrantConfig  `koanf:"qdrant"`
}

// Validate checks the provider and collection names.
func (c Config) Validate() error {
	switch c.Provider {
	case "", "chromem":
	case "qdrant":
		qc := c.Qdrant
		qc.ApplyDefaults()
		if err := qc.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unsupported provider %q (supported: chromem, qdrant)", ErrInvalidConfig, c.Provider)
	}
	for _, name := range c.Collections {
		if err := ValidateCollectionName(name); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if c.VectorSize < 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return nil
}

// NewStore creates the backend named by cfg.Provider:
//   - "chromem" (default): embedded, in-memory when Chromem.Path is empty
//   - "qdrant": external Qdrant server over gRPC
func NewStore(cfg Config, embedder Embedder, logger *zap.Logger) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "qdrant":
		qc := cfg.Qdrant
		if qc.VectorSize == 0 {
			qc.VectorSize = cfg.VectorSize
		}
		return NewQdrantStore(qc, embedder, logger)
	default:
		cc := cfg.Chromem
		if cc.VectorSize == 0 {
			cc.VectorSize = cfg.VectorSize
		}
		return NewChromemStore(cc, embedder, logger)
	}
}
