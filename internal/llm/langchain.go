package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

// placeholderToken satisfies langchaingo's key check for keyless
// OpenAI-compatible servers.
const placeholderToken = "not-needed"

// LangChainClient completes prompts through any langchaingo model.
type LangChainClient struct {
	model llms.Model
	name  string
}

// NewLangChainClient wraps an existing langchaingo model.
func NewLangChainClient(model llms.Model, name string) *LangChainClient {
	return &LangChainClient{model: model, name: name}
}

// NewLangChainOpenAI builds an OpenAI-compatible langchaingo model.
func NewLangChainOpenAI(cfg Config) (*LangChainClient, error) {
	token := cfg.APIKey
	if token == "" {
		token = placeholderToken
	}
	opts := []lcopenai.Option{
		lcopenai.WithModel(cfg.Model),
		lcopenai.WithToken(token),
		lcopenai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(cfg.BaseURL))
	}
	m, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: langchain openai: %w", ErrInvalidConfig, err)
	}
	return NewLangChainClient(m, "langchain-openai"), nil
}

// NewLangChainOllama builds an Ollama model. An empty BaseURL uses the
// Ollama default (http://localhost:11434).
func NewLangChainOllama(cfg Config) (*LangChainClient, error) {
	opts := []ollama.Option{
		ollama.WithModel(cfg.Model),
		ollama.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	m, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama: %w", ErrInvalidConfig, err)
	}
	return NewLangChainClient(m, "ollama"), nil
}

// Complete implements Client.
func (c *LangChainClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	var callOpts []llms.CallOption
	callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, callOpts...)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrCompletion, c.name, err)
	}
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

var _ Client = (*LangChainClient)(nil)
