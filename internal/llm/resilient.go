package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
)

var tracer = otel.Tracer("tutor.llm")

// Resilient rate-limits a Client and retries transient failures with
// exponential backoff.
type Resilient struct {
	next       Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewResilient wraps next using cfg's rate limit and retry settings.
func NewResilient(next Client, cfg Config, logger *zap.Logger) *Resilient {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Resilient{
		next:       next,
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		logger:     logger,
	}
}

// Complete implements Client.
func (r *Resilient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.Int("prompt_chars", len(prompt)),
		attribute.Float64("temperature", opts.Temperature),
		attribute.Int("max_tokens", opts.MaxTokens),
	)

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := r.backoff * time.Duration(1<<(attempt-1))
			r.logger.Debug("retrying completion",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}

		out, err := r.next.Complete(ctx, prompt, opts)
		if err == nil {
			span.SetAttributes(attribute.Int("attempts", attempt+1), attribute.Int("completion_chars", len(out)))
			span.SetStatus(codes.Ok, "")
			return out, nil
		}

		lastErr = err
		if !isRetryable(err) {
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return "", lastErr
}

// isRetryable treats rate limiting, server errors and transport failures
// as transient. Cancellation, bad requests and malformed replies are not.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, errdefs.ErrMalformedResponse) || errors.Is(err, errdefs.ErrConfiguration) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 || retryableStatus(reqErr.HTTPStatusCode)
	}
	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

var _ Client = (*Resilient)(nil)
