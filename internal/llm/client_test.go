package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "openai with key", cfg: Config{Provider: "openai", APIKey: "sk-test"}},
		{name: "openai compatible url", cfg: Config{Provider: "openai", BaseURL: "http://localhost:8000/v1"}},
		{name: "openai without credentials", cfg: Config{Provider: "openai"}, wantErr: true},
		{name: "langchain without credentials", cfg: Config{Provider: "langchain-openai"}, wantErr: true},
		{name: "ollama", cfg: Config{Provider: "ollama"}},
		{name: "unknown", cfg: Config{Provider: "bard"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ApplyDefaults()
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, errdefs.ErrConfiguration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{Provider: "ollama"}
	cfg.ApplyDefaults()
	assert.Equal(t, DefaultOllamaModel, cfg.Model)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)

	cfg = Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, DefaultModel, cfg.Model)
}

func TestNew(t *testing.T) {
	for _, provider := range []string{"openai", "langchain-openai", "ollama"} {
		t.Run(provider, func(t *testing.T) {
			c, err := New(Config{Provider: provider, BaseURL: "http://127.0.0.1:1"}, zap.NewNop())
			require.NoError(t, err)
			assert.IsType(t, &Resilient{}, c)
		})
	}

	_, err := New(Config{Provider: "openai"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func chatServer(t *testing.T, failures int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if n <= failures {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"try later","type":"server_error"}}`))
			return
		}
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "cmpl-1",
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "echo: " + req.Messages[0].Content},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestOpenAIClient_Complete(t *testing.T) {
	srv, _ := chatServer(t, 0, 0)
	c := NewOpenAIClient(Config{Model: "gpt-test", BaseURL: srv.URL, Timeout: 5 * time.Second})

	out, err := c.Complete(context.Background(), "hello", Options{Temperature: 0.2, MaxTokens: 50})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", out)
}

func TestResilient_RetriesServerErrors(t *testing.T) {
	srv, calls := chatServer(t, 2, http.StatusServiceUnavailable)
	cfg := Config{Model: "gpt-test", BaseURL: srv.URL, Timeout: 5 * time.Second, MaxRetries: 3, Backoff: time.Millisecond, RateLimit: 1000, Burst: 10}
	c := NewResilient(NewOpenAIClient(cfg), cfg, zap.NewNop())

	out, err := c.Complete(context.Background(), "hi", Options{})
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestResilient_DoesNotRetryClientErrors(t *testing.T) {
	srv, calls := chatServer(t, 5, http.StatusBadRequest)
	cfg := Config{Model: "gpt-test", BaseURL: srv.URL, Timeout: 5 * time.Second, MaxRetries: 3, Backoff: time.Millisecond}
	c := NewResilient(NewOpenAIClient(cfg), cfg, zap.NewNop())

	_, err := c.Complete(context.Background(), "hi", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errdefs.ErrUpstreamUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResilient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	flaky := Func(func(context.Context, string, Options) (string, error) {
		calls.Add(1)
		return "", errors.New("connection reset")
	})
	c := NewResilient(flaky, Config{MaxRetries: 2, Backoff: time.Millisecond}, zap.NewNop())

	_, err := c.Complete(context.Background(), "hi", Options{})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestResilient_MalformedNotRetried(t *testing.T) {
	var calls atomic.Int32
	empty := Func(func(context.Context, string, Options) (string, error) {
		calls.Add(1)
		return "", ErrEmptyResponse
	})
	c := NewResilient(empty, Config{MaxRetries: 3, Backoff: time.Millisecond}, zap.NewNop())

	_, err := c.Complete(context.Background(), "hi", Options{})
	assert.ErrorIs(t, err, errdefs.ErrMalformedResponse)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResilient_ContextCanceled(t *testing.T) {
	failing := Func(func(context.Context, string, Options) (string, error) {
		return "", errors.New("unavailable")
	})
	c := NewResilient(failing, Config{MaxRetries: 5, Backoff: time.Hour}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Complete(ctx, "hi", Options{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
