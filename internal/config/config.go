// Package config loads tutord configuration.
//
// Configuration is layered, lowest precedence first:
//
//  1. built-in defaults (defaults.yaml, embedded)
//  2. a YAML file (~/.config/tutor/config.yaml unless a path is given)
//  3. TUTOR_* environment variables
//
// Each section decodes into the Config type of the package it configures,
// so the package that owns a setting also owns its defaults and checks.
package config

import (
	"fmt"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/checkpoint"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/classifier"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/conversation"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/embeddings"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/events"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/kvstore"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/llm"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/logging"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/telemetry"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/tutor"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/vectorstore"
)

// Config is the complete tutord configuration.
type Config struct {
	Server       ServerConfig        `koanf:"server"`
	Logging      logging.Config      `koanf:"logging"`
	Telemetry    telemetry.Config    `koanf:"telemetry"`
	LLM          llm.Config          `koanf:"llm"`
	Embeddings   EmbeddingsConfig    `koanf:"embeddings"`
	VectorStore  vectorstore.Config  `koanf:"vectorstore"`
	Store        kvstore.Config      `koanf:"store"`
	Archive      kvstore.Config      `koanf:"archive"`
	Checkpoint   checkpoint.Config   `koanf:"checkpoint"`
	Classifier   classifier.Config   `koanf:"classifier"`
	Conversation conversation.Config `koanf:"conversation"`
	Tutor        tutor.Config        `koanf:"tutor"`
	Events       events.Config       `koanf:"events"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string   `koanf:"addr"`
	RequestTimeout  Duration `koanf:"request_timeout"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	// BodyLimit uses echo's size syntax, e.g. "2M".
	BodyLimit string `koanf:"body_limit"`
	// AuthToken, when set, is required as a bearer token on /api routes.
	AuthToken Secret `koanf:"auth_token"`
}

// EmbeddingsConfig combines the model provider with its caching pipeline.
type EmbeddingsConfig struct {
	embeddings.ProviderConfig `koanf:",squash"`

	Cache embeddings.PipelineConfig `koanf:"cache"`
}

// Pipeline returns the pipeline settings keyed to the configured model.
func (c EmbeddingsConfig) Pipeline() embeddings.PipelineConfig {
	p := c.Cache
	p.Model = c.Model
	return p
}

// ArchiveEnabled reports whether ended sessions have a long-term store.
func (c *Config) ArchiveEnabled() bool {
	return c.Archive.Backend != ""
}

// applyDefaults fills values that depend on other settings.
func applyDefaults(cfg *Config) {
	cfg.LLM.ApplyDefaults()
	cfg.VectorStore.Chromem.ApplyDefaults()
	cfg.VectorStore.Qdrant.ApplyDefaults()
	cfg.Classifier.ApplyDefaults()
	cfg.Conversation.ApplyDefaults()
	cfg.Tutor.ApplyDefaults()

	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = embeddings.DefaultModel
	}
	if cfg.VectorStore.VectorSize == 0 {
		cfg.VectorStore.VectorSize = embeddings.DimensionForModel(cfg.Embeddings.Model)
	}
	if cfg.Logging.Fields == nil {
		cfg.Logging.Fields = map[string]string{}
	}
	if _, ok := cfg.Logging.Fields["service"]; !ok {
		cfg.Logging.Fields["service"] = cfg.Telemetry.ServiceName
	}
	if cfg.Server.BodyLimit == "" {
		cfg.Server.BodyLimit = "2M"
	}
}

// Validate checks every section. Missing credentials and unknown providers
// wrap errdefs.ErrConfiguration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required: %w", errdefs.ErrConfiguration)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive: %w", errdefs.ErrConfiguration)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %v: %w", err, errdefs.ErrConfiguration)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %v: %w", err, errdefs.ErrConfiguration)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.validateEmbeddings(); err != nil {
		return err
	}
	if err := c.VectorStore.Validate(); err != nil {
		return fmt.Errorf("vectorstore: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if c.ArchiveEnabled() {
		if err := c.Archive.Validate(); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}
	if c.Checkpoint.TTL < 0 {
		return fmt.Errorf("checkpoint.ttl must not be negative: %w", errdefs.ErrConfiguration)
	}
	if c.Tutor.Temperature < 0 || c.Tutor.GradingTemperature < 0 {
		return fmt.Errorf("tutor temperatures must not be negative: %w", errdefs.ErrConfiguration)
	}
	return nil
}

func (c *Config) validateEmbeddings() error {
	e := c.Embeddings
	switch e.Provider {
	case "", "fastembed":
	case "tei":
		if e.BaseURL == "" {
			return fmt.Errorf("embeddings: tei requires base_url: %w", errdefs.ErrConfiguration)
		}
	case "openai":
		if e.BaseURL == "" && e.APIKey == "" {
			return fmt.Errorf("embeddings: openai requires api_key or base_url: %w", errdefs.ErrConfiguration)
		}
	default:
		return fmt.Errorf("embeddings: unknown provider %q: %w", e.Provider, errdefs.ErrConfiguration)
	}
	if e.Model == "" {
		return fmt.Errorf("embeddings.model is required: %w", errdefs.ErrConfiguration)
	}
	return nil
}
