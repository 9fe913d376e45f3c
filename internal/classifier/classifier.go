package classifier

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/vectorstore"
)

var tracer = otel.Tracer("tutor.classifier")

// Searcher is the part of the vector index used to confirm retrieval.
type Searcher interface {
	Search(ctx context.Context, collection, query string, opts vectorstore.SearchOptions) ([]vectorstore.SearchResult, error)
}

// Config holds the semantic stage thresholds.
type Config struct {
	// SemanticThreshold escalates rule results below it to Stage B.
	SemanticThreshold float64 `koanf:"semantic_threshold"`

	PlatformActionThreshold float64 `koanf:"platform_action_threshold"`
	RetrievalThreshold      float64 `koanf:"retrieval_threshold"`

	// AmbiguityGap and AmbiguityCeiling define the ambiguous band: the top
	// two modes closer than the gap while the top is under the ceiling.
	AmbiguityGap        float64 `koanf:"ambiguity_gap"`
	AmbiguityCeiling    float64 `koanf:"ambiguity_ceiling"`
	AmbiguousConfidence float64 `koanf:"ambiguous_confidence"`

	// Collection is searched to confirm retrieval.
	Collection      string  `koanf:"collection"`
	ConfirmTopK     int     `koanf:"confirm_top_k"`
	ConfirmMinScore float64 `koanf:"confirm_min_score"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		SemanticThreshold:       0.7,
		PlatformActionThreshold: 0.6,
		RetrievalThreshold:      0.5,
		AmbiguityGap:            0.15,
		AmbiguityCeiling:        0.7,
		AmbiguousConfidence:     0.4,
		Collection:              "course_content",
		ConfirmTopK:             3,
		ConfirmMinScore:         0.3,
	}
}

// ApplyDefaults fills zero fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.SemanticThreshold == 0 {
		c.SemanticThreshold = d.SemanticThreshold
	}
	if c.PlatformActionThreshold == 0 {
		c.PlatformActionThreshold = d.PlatformActionThreshold
	}
	if c.RetrievalThreshold == 0 {
		c.RetrievalThreshold = d.RetrievalThreshold
	}
	if c.AmbiguityGap == 0 {
		c.AmbiguityGap = d.AmbiguityGap
	}
	if c.AmbiguityCeiling == 0 {
		c.AmbiguityCeiling = d.AmbiguityCeiling
	}
	if c.AmbiguousConfidence == 0 {
		c.AmbiguousConfidence = d.AmbiguousConfidence
	}
	if c.Collection == "" {
		c.Collection = d.Collection
	}
	if c.ConfirmTopK == 0 {
		c.ConfirmTopK = d.ConfirmTopK
	}
	if c.ConfirmMinScore == 0 {
		c.ConfirmMinScore = d.ConfirmMinScore
	}
}

// Classifier routes messages. Embedder and index are optional; without an
// embedder only the rule stages run.
type Classifier struct {
	config   Config
	embedder vectorstore.Embedder
	index    Searcher
	logger   *zap.Logger
	stats    *statsRecorder

	exemplarMu sync.Mutex
	exemplars  exemplarIndex
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithEmbedder enables the semantic stage.
func WithEmbedder(e vectorstore.Embedder) Option {
	return func(c *Classifier) { c.embedder = e }
}

// WithIndex enables retrieval confirmation.
func WithIndex(s Searcher) Option {
	return func(c *Classifier) { c.index = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Classifier.
func New(cfg Config, opts ...Option) *Classifier {
	cfg.ApplyDefaults()
	c := &Classifier{
		config: cfg,
		logger: zap.NewNop(),
		stats:  newStatsRecorder(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClassifyWithRules runs only the rule stage. It does not update stats.
func (c *Classifier) ClassifyWithRules(query string) Result {
	return classifyRules(query).Result
}

// Classify routes query. It fails only for an empty query or an unknown
// ForceMode; semantic failures degrade to the rule result.
func (c *Classifier) Classify(ctx context.Context, query string, opts Options) (Result, error) {
	ctx, span := tracer.Start(ctx, "Classifier.Classify")
	defer span.End()

	if strings.TrimSpace(query) == "" {
		span.SetStatus(codes.Error, ErrEmptyQuery.Error())
		return Result{}, ErrEmptyQuery
	}

	res, err := c.classify(ctx, query, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	c.stats.record(res)
	span.SetAttributes(
		attribute.String("mode", string(res.Mode)),
		attribute.String("method", string(res.Method)),
		attribute.Float64("confidence", res.Confidence),
		attribute.Bool("fallback", res.Fallback),
	)
	span.SetStatus(codes.Ok, "")
	return res, nil
}

func (c *Classifier) classify(ctx context.Context, query string, opts Options) (Result, error) {
	if opts.ForceMode != "" {
		if !opts.ForceMode.Valid() {
			return Result{}, fmt.Errorf("%w: %q", ErrInvalidMode, opts.ForceMode)
		}
		return Result{
			Mode:       opts.ForceMode,
			Confidence: 1.0,
			Method:     MethodForced,
			Rationale:  "mode forced by caller",
		}, nil
	}

	rules := classifyRules(query)
	if rules.patternMatch {
		return rules.Result, nil
	}

	if res, ok := sessionMemory(query, opts.History); ok {
		return res, nil
	}

	escalate := rules.Confidence < c.config.SemanticThreshold ||
		opts.Semantic ||
		(opts.KnowledgeCheck && rules.Mode == ModeRetrieval)
	if !escalate || c.embedder == nil {
		return rules.Result, nil
	}

	res, err := c.semantic(ctx, query)
	if err != nil {
		c.logger.Warn("semantic classification failed, using rule result",
			zap.Error(err),
			zap.String("rule_mode", string(rules.Mode)),
			zap.Float64("rule_confidence", rules.Confidence),
		)
		return rules.Result, nil
	}
	return res, nil
}

func (c *Classifier) exemplarIndex(ctx context.Context) (exemplarIndex, error) {
	c.exemplarMu.Lock()
	defer c.exemplarMu.Unlock()
	if c.exemplars != nil {
		return c.exemplars, nil
	}
	idx, err := buildExemplarIndex(ctx, c.embedder)
	if err != nil {
		return nil, err
	}
	c.exemplars = idx
	return idx, nil
}

func (c *Classifier) semantic(ctx context.Context, query string) (Result, error) {
	ctx, span := tracer.Start(ctx, "Classifier.semantic")
	defer span.End()

	idx, err := c.exemplarIndex(ctx)
	if err != nil {
		return Result{}, err
	}
	vec, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("embedding query: %w", err)
	}
	scores, err := idx.score(vec)
	if err != nil {
		return Result{}, err
	}

	ranked := rank(scores)
	top, second := ranked[0], ranked[1]
	span.SetAttributes(attribute.String("top_mode", string(top.mode)), attribute.Float64("top_score", top.score))

	switch {
	case top.mode == ModePlatformAction && top.score > c.config.PlatformActionThreshold:
		return Result{
			Mode:       ModePlatformAction,
			Confidence: clamp(top.score),
			Method:     MethodSemantic,
			Rationale:  "closest to platform action exemplars; action resolution required downstream",
			Scores:     scores,
		}, nil

	case top.mode == ModeRetrieval && top.score > c.config.RetrievalThreshold:
		return c.confirmRetrieval(ctx, query, top.score, scores)

	case top.score-second.score < c.config.AmbiguityGap && top.score < c.config.AmbiguityCeiling:
		return Result{
			Mode:       ModeConversational,
			Confidence: c.config.AmbiguousConfidence,
			Method:     MethodSemantic,
			Rationale:  fmt.Sprintf("ambiguous between %s (%.2f) and %s (%.2f)", top.mode, top.score, second.mode, second.score),
			Scores:     scores,
		}, nil

	default:
		return Result{
			Mode:       top.mode,
			Confidence: clamp(top.score),
			Method:     MethodSemantic,
			Rationale:  fmt.Sprintf("closest to %s exemplars", top.mode),
			Scores:     scores,
		}, nil
	}
}

// confirmRetrieval checks that the index holds relevant material.
func (c *Classifier) confirmRetrieval(ctx context.Context, query string, score float64, scores map[Mode]float64) (Result, error) {
	if c.index == nil {
		return Result{
			Mode:       ModeRetrieval,
			Confidence: clamp(score),
			Method:     MethodSemantic,
			Rationale:  "closest to retrieval exemplars; no index configured for confirmation",
			Scores:     scores,
		}, nil
	}

	results, err := c.index.Search(ctx, c.config.Collection, query, vectorstore.SearchOptions{
		TopK:     c.config.ConfirmTopK,
		MinScore: float32(c.config.ConfirmMinScore),
	})
	if err != nil {
		return Result{}, fmt.Errorf("confirming retrieval: %w", err)
	}

	if len(results) == 0 {
		return Result{
			Mode:           ModeConversational,
			Confidence:     clamp(scores[ModeConversational]),
			Method:         MethodSemantic,
			Rationale:      "retrieval intent not backed by indexed material",
			Fallback:       true,
			FallbackReason: fmt.Sprintf("no document in %q scored at least %.2f", c.config.Collection, c.config.ConfirmMinScore),
			Scores:         scores,
		}, nil
	}

	return Result{
		Mode:       ModeRetrieval,
		Confidence: clamp(score),
		Method:     MethodSemantic,
		Rationale:  fmt.Sprintf("closest to retrieval exemplars; confirmed by %d indexed documents (best %.2f)", len(results), results[0].Score),
		Scores:     scores,
	}, nil
}

// Stats returns a snapshot of classification statistics.
func (c *Classifier) Stats() Stats {
	return c.stats.snapshot()
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
