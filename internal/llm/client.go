package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
)

// Defaults for Config.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultOllamaModel = "llama3.1"
	DefaultTimeout     = 60 * time.Second
	DefaultRateLimit   = 5.0
	DefaultBurst       = 2
	DefaultMaxRetries  = 3
	DefaultBackoff     = time.Second
)

// Sentinel errors.
var (
	ErrInvalidConfig = fmt.Errorf("invalid llm configuration: %w", errdefs.ErrConfiguration)
	ErrEmptyResponse = fmt.Errorf("empty completion: %w", errdefs.ErrMalformedResponse)
	ErrCompletion    = fmt.Errorf("completion failed: %w", errdefs.ErrUpstreamUnavailable)
)

// Options tune a single completion.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Client completes prompts.
type Client interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// Func adapts a function to Client.
type Func func(ctx context.Context, prompt string, opts Options) (string, error)

// Complete implements Client.
func (f Func) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

// Config selects and configures the completion backend.
type Config struct {
	// Provider is "openai", "langchain-openai" or "ollama".
	Provider string `koanf:"provider"`

	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key" json:"-"`

	Timeout time.Duration `koanf:"timeout"`

	// RateLimit is requests per second; Burst the bucket size.
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`

	MaxRetries int           `koanf:"max_retries"`
	Backoff    time.Duration `koanf:"backoff"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Model == "" {
		if c.Provider == "ollama" {
			c.Model = DefaultOllamaModel
		} else {
			c.Model = DefaultModel
		}
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.Burst == 0 {
		c.Burst = DefaultBurst
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Backoff == 0 {
		c.Backoff = DefaultBackoff
	}
}

// Validate reports missing credentials for the selected provider.
func (c Config) Validate() error {
	switch c.Provider {
	case "openai", "langchain-openai":
		if c.APIKey == "" && c.BaseURL == "" {
			return fmt.Errorf("%w: %s requires api_key or base_url", ErrInvalidConfig, c.Provider)
		}
	case "ollama":
	default:
		return fmt.Errorf("%w: unknown provider %q (supported: openai, langchain-openai, ollama)", ErrInvalidConfig, c.Provider)
	}
	if c.RateLimit < 0 || c.Burst < 0 || c.MaxRetries < 0 {
		return fmt.Errorf("%w: rate_limit, burst and max_retries must not be negative", ErrInvalidConfig)
	}
	return nil
}

// New builds the configured backend wrapped with rate limiting and retries.
func New(cfg Config, logger *zap.Logger) (Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		backend Client
		err     error
	)
	switch cfg.Provider {
	case "openai":
		backend = NewOpenAIClient(cfg)
	case "langchain-openai":
		backend, err = NewLangChainOpenAI(cfg)
	case "ollama":
		backend, err = NewLangChainOllama(cfg)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("llm client initialized",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Float64("rate_limit", cfg.RateLimit),
	)
	return NewResilient(backend, cfg, logger), nil
}
