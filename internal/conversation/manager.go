package conversation

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("tutor.conversation")

// Config controls context assembly.
type Config struct {
	// RecentTurns is the verbatim window K.
	RecentTurns int `koanf:"recent_turns"`

	// SummarizeThreshold is the minimum number of older turns that are
	// summarized instead of kept verbatim.
	SummarizeThreshold int `koanf:"summarize_threshold"`

	// SummaryMaxChars bounds the synopsis.
	SummaryMaxChars int `koanf:"summary_max_chars"`

	// TokenBudget caps the formatted context. Zero disables the cap.
	TokenBudget int `koanf:"token_budget"`

	// CacheTTL evicts idle session entries.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	return Config{
		RecentTurns:        3,
		SummarizeThreshold: 5,
		SummaryMaxChars:    600,
		TokenBudget:        1500,
		CacheTTL:           time.Hour,
	}
}

// ApplyDefaults fills zero fields from DefaultConfig. TokenBudget is left
// alone so zero keeps meaning unlimited.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.RecentTurns <= 0 {
		c.RecentTurns = d.RecentTurns
	}
	if c.SummarizeThreshold <= 0 {
		c.SummarizeThreshold = d.SummarizeThreshold
	}
	if c.SummaryMaxChars <= 0 {
		c.SummaryMaxChars = d.SummaryMaxChars
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
}

type cacheEntry struct {
	revision int64
	context  *Context
}

// Manager builds and caches conversational context per session.
type Manager struct {
	config     Config
	summarizer Summarizer
	cache      *gocache.Cache
	logger     *zap.Logger
}

// NewManager creates a Manager. A nil summarizer keeps older turns verbatim.
func NewManager(cfg Config, summarizer Summarizer, logger *zap.Logger) *Manager {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		config:     cfg,
		summarizer: summarizer,
		cache:      gocache.New(cfg.CacheTTL, cfg.CacheTTL*2),
		logger:     logger,
	}
}

// BuildContext returns the context for history at the given revision.
// A cached context is reused only when its revision matches. A
// summarization failure is returned and nothing is cached.
func (m *Manager) BuildContext(ctx context.Context, sessionID string, revision int64, history []Turn, profile Profile) (*Context, error) {
	ctx, span := tracer.Start(ctx, "Manager.BuildContext")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.Int64("revision", revision),
		attribute.Int("history_len", len(history)),
	)

	if v, ok := m.cache.Get(sessionID); ok {
		entry := v.(cacheEntry)
		if entry.revision == revision {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			out := entry.context.clone()
			out.FromCache = true
			return out, nil
		}
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	k := m.config.RecentTurns
	split := max(len(history)-k, 0)
	older := history[:split]
	recent := history[split:]

	out := &Context{
		SessionID: sessionID,
		Revision:  revision,
		Profile:   profile.Format(),
		Recent:    append([]Turn(nil), recent...),
	}

	if len(older) >= m.config.SummarizeThreshold && m.summarizer != nil {
		summary, err := m.summarizer.Summarize(ctx, older, m.config.SummaryMaxChars)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("summarizing %d turns: %w", len(older), err)
		}
		out.Summary = truncateRunes(summary, m.config.SummaryMaxChars)
	} else {
		out.Older = append([]Turn(nil), older...)
	}

	m.fit(out)
	out.EstimatedTokens = EstimateTokens(out.Format())

	m.cache.Set(sessionID, cacheEntry{revision: revision, context: out.clone()}, gocache.DefaultExpiration)
	m.logger.Debug("built conversation context",
		zap.String("session.id", sessionID),
		zap.Int64("revision", revision),
		zap.Int("estimated_tokens", out.EstimatedTokens),
		zap.Bool("summarized", out.Summary != ""),
		zap.Bool("truncated", out.Truncated),
	)
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// Invalidate drops the cached context for a session.
func (m *Manager) Invalidate(sessionID string) {
	m.cache.Delete(sessionID)
}

// fit trims c to the token budget: profile first, then summary, then
// turns from newest to oldest.
func (m *Manager) fit(c *Context) {
	budget := m.config.TokenBudget
	if budget <= 0 || EstimateTokens(c.Format()) <= budget {
		return
	}
	c.Truncated = true
	budgetChars := budget * charsPerToken

	turns := append(append([]Turn(nil), c.Older...), c.Recent...)
	olderLen := len(c.Older)
	c.Older, c.Recent = nil, nil
	summary := c.Summary
	c.Summary = ""

	if EstimateTokens(c.Format()) > budget {
		c.Profile = truncateRunes(c.Profile, budgetChars)
		return
	}

	if summary != "" {
		c.Summary = summary
		if EstimateTokens(c.Format()) > budget {
			c.Summary = ""
			overhead := len([]rune(c.Format())) + len([]rune("\n\nSummary of earlier conversation:\n"))
			if c.Profile == "" {
				overhead -= 2
			}
			if room := budgetChars - overhead; room > 0 {
				c.Summary = truncateRunes(summary, room)
			}
			return
		}
	}

	kept := 0
	for i := len(turns) - 1; i >= 0; i-- {
		start := i
		c.Older, c.Recent = splitTurns(turns[start:], olderLen-start)
		if EstimateTokens(c.Format()) > budget {
			break
		}
		kept = len(turns) - start
	}
	start := len(turns) - kept
	c.Older, c.Recent = splitTurns(turns[start:], olderLen-start)
}

// splitTurns divides turns into the first n (older) and the rest.
func splitTurns(turns []Turn, n int) (older, recent []Turn) {
	n = max(0, min(n, len(turns)))
	if n > 0 {
		older = append([]Turn(nil), turns[:n]...)
	}
	if len(turns) > n {
		recent = append([]Turn(nil), turns[n:]...)
	}
	return older, recent
}

func (c *Context) clone() *Context {
	out := *c
	out.Older = append([]Turn(nil), c.Older...)
	out.Recent = append([]Turn(nil), c.Recent...)
	return &out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
