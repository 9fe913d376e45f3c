package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/checkpoint"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/classifier"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/conversation"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/events"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/kvstore"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/llm"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/vectorstore"
)

const instrumentationName = "github.com/PandyaSumit/mini--AI-tutor-sub008/internal/tutor"

// Config tunes the tutoring loop.
type Config struct {
	// HistoryLimit bounds the stored history to the most recent turns.
	HistoryLimit int `koanf:"history_limit"`

	// HintBudget is the number of hints given before re-explaining.
	HintBudget int `koanf:"hint_budget"`

	// MaxConcepts ends the session once this many concepts are mastered.
	MaxConcepts int `koanf:"max_concepts"`

	// Collection is searched for learning goals and reference material.
	Collection       string  `koanf:"collection"`
	GoalsTopK        int     `koanf:"goals_top_k"`
	MaterialTopK     int     `koanf:"material_top_k"`
	MinMaterialScore float32 `koanf:"min_material_score"`

	// ArchiveOnEnd copies the final snapshot to the archive store before
	// the checkpoint is deleted.
	ArchiveOnEnd bool `koanf:"archive_on_end"`

	Temperature        float64 `koanf:"temperature"`
	GradingTemperature float64 `koanf:"grading_temperature"`
	MaxTokens          int     `koanf:"max_tokens"`
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	return Config{
		HistoryLimit:       20,
		HintBudget:         2,
		MaxConcepts:        5,
		Collection:         "course_content",
		GoalsTopK:          3,
		MaterialTopK:       2,
		MinMaterialScore:   0.3,
		ArchiveOnEnd:       true,
		Temperature:        0.7,
		GradingTemperature: 0.1,
		MaxTokens:          600,
	}
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.HintBudget < 0 {
		c.HintBudget = d.HintBudget
	}
	if c.MaxConcepts <= 0 {
		c.MaxConcepts = d.MaxConcepts
	}
	if c.Collection == "" {
		c.Collection = d.Collection
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
}

// Router classifies learner messages.
type Router interface {
	Classify(ctx context.Context, query string, opts classifier.Options) (classifier.Result, error)
}

// Searcher is the part of the vector index the tutor reads.
type Searcher interface {
	Search(ctx context.Context, collection, query string, opts vectorstore.SearchOptions) ([]vectorstore.SearchResult, error)
}

// Service runs tutoring sessions. Sessions live only in the checkpoint
// store; every call loads the snapshot, advances the graph and saves.
// Calls for the same session are serialized within the process. Across
// processes the last write wins.
type Service struct {
	config      Config
	llm         llm.Client
	checkpoints checkpoint.Service
	contexts    *conversation.Manager
	router      Router
	index       Searcher
	archive     kvstore.Store
	publisher   events.Publisher
	logger      *zap.Logger

	locks *sessionLocks

	tracer        trace.Tracer
	startCounter  metric.Int64Counter
	nodeCounter   metric.Int64Counter
	answerCounter metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithContextManager sets the conversation context manager. By default a
// manager summarizing through the service's LLM client is used.
func WithContextManager(m *conversation.Manager) Option {
	return func(s *Service) { s.contexts = m }
}

// WithRouter classifies learner messages; retrieval-style questions asked
// between exercises get a fresh explanation.
func WithRouter(r Router) Option {
	return func(s *Service) { s.router = r }
}

// WithIndex enables learning goal and reference material lookups.
func WithIndex(idx Searcher) Option {
	return func(s *Service) { s.index = idx }
}

// WithArchive sets the long-term store for ended sessions.
func WithArchive(store kvstore.Store) Option {
	return func(s *Service) { s.archive = store }
}

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service.
func NewService(cfg Config, client llm.Client, checkpoints checkpoint.Service, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, errors.New("llm client is required")
	}
	if checkpoints == nil {
		return nil, errors.New("checkpoint service is required")
	}
	cfg.ApplyDefaults()

	s := &Service{
		config:      cfg,
		llm:         client,
		checkpoints: checkpoints,
		publisher:   events.Nop{},
		locks:       newSessionLocks(),
		tracer:      otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.contexts == nil {
		s.contexts = conversation.NewManager(conversation.DefaultConfig(), conversation.NewLLMSummarizer(client), s.logger)
	}
	s.initMetrics()
	return s, nil
}

func (s *Service) initMetrics() {
	meter := otel.Meter(instrumentationName)
	var err error

	s.startCounter, err = meter.Int64Counter(
		"tutor.sessions.started_total",
		metric.WithDescription("Total number of tutoring sessions started"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		s.logger.Warn("failed to create start counter", zap.Error(err))
	}

	s.nodeCounter, err = meter.Int64Counter(
		"tutor.sessions.nodes_total",
		metric.WithDescription("Total number of completed graph nodes by node"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		s.logger.Warn("failed to create node counter", zap.Error(err))
	}

	s.answerCounter, err = meter.Int64Counter(
		"tutor.sessions.answers_total",
		metric.WithDescription("Total number of graded answers by correctness"),
		metric.WithUnit("{answer}"),
	)
	if err != nil {
		s.logger.Warn("failed to create answer counter", zap.Error(err))
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Start creates a session and runs it up to the first question prompt.
// An empty level means beginner.
func (s *Service) Start(ctx context.Context, userID, topic string, level Level) (*Reply, error) {
	ctx, span := s.tracer.Start(ctx, "tutor.Start")
	defer span.End()

	userID, topic = strings.TrimSpace(userID), strings.TrimSpace(topic)
	if userID == "" || topic == "" {
		return nil, fail(span, fmt.Errorf("user id and topic are required: %w", ErrInvalidInput))
	}
	if level == "" {
		level = LevelBeginner
	}
	if !level.Valid() {
		return nil, fail(span, fmt.Errorf("unknown level %q: %w", level, ErrInvalidInput))
	}

	now := time.Now().UTC()
	st := &State{
		SessionID:    uuid.NewString(),
		UserID:       userID,
		Topic:        topic,
		StudentLevel: level,
		Phase:        PhaseIntroduction,
		NextAction:   actionInitialize,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	span.SetAttributes(attribute.String("session.id", st.SessionID))

	unlock := s.locks.lock(st.SessionID)
	defer unlock()

	r := &run{st: st}
	if err := s.execute(ctx, r, actionInitialize); err != nil {
		return nil, fail(span, fmt.Errorf("starting session %s: %w", st.SessionID, err))
	}

	if s.startCounter != nil {
		s.startCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("level", string(level))))
	}
	s.publish(ctx, st, events.TypeSessionStarted, map[string]any{
		"topic": topic,
		"level": string(level),
	})
	s.logger.Info("session started",
		zap.String("session.id", st.SessionID),
		zap.String("user.id", userID),
		zap.String("topic", topic),
		zap.String("level", string(level)),
	)
	span.SetStatus(codes.Ok, "")
	return s.reply(r, ""), nil
}

// Interact feeds one learner message into the session. An exit phrase
// ends the session.
func (s *Service) Interact(ctx context.Context, sessionID, message string) (*Reply, error) {
	ctx, span := s.tracer.Start(ctx, "tutor.Interact")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fail(span, fmt.Errorf("message is required: %w", ErrInvalidInput))
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	st, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, fail(span, err)
	}
	if st.Ended {
		return nil, fail(span, fmt.Errorf("session %s: %w", sessionID, ErrSessionEnded))
	}

	mode := s.classify(ctx, st, message)
	s.addTurn(st, conversation.RoleUser, message)

	r := &run{st: st, answer: message}
	from := st.NextAction
	switch {
	case IsExitPhrase(message):
		from = ActionEnd
	case from == ActionQuestion && mode == classifier.ModeRetrieval:
		from = ActionExplain
	case from == actionInitialize:
		from = ActionAssess
	}
	span.SetAttributes(attribute.String("node", string(from)))

	if err := s.execute(ctx, r, from); err != nil {
		return nil, fail(span, fmt.Errorf("session %s: %w", sessionID, err))
	}
	span.SetStatus(codes.Ok, "")
	return s.reply(r, mode), nil
}

// GetSession returns the current snapshot of a session.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "tutor.GetSession")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	st, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, fail(span, err)
	}
	return st, nil
}

// EndSession closes a session with a summary. The checkpoint is archived
// when configured and then deleted.
func (s *Service) EndSession(ctx context.Context, sessionID string) (*Reply, error) {
	ctx, span := s.tracer.Start(ctx, "tutor.EndSession")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	unlock := s.locks.lock(sessionID)
	defer unlock()

	st, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, fail(span, err)
	}
	r := &run{st: st}
	if err := s.execute(ctx, r, ActionEnd); err != nil {
		return nil, fail(span, fmt.Errorf("session %s: %w", sessionID, err))
	}
	span.SetStatus(codes.Ok, "")
	return s.reply(r, ""), nil
}

func (s *Service) load(ctx context.Context, sessionID string) (*State, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is required: %w", ErrInvalidInput)
	}
	cp, err := s.checkpoints.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	if cp == nil {
		return nil, fmt.Errorf("%s: %w", sessionID, ErrSessionNotFound)
	}
	var st State
	if err := json.Unmarshal(cp.State, &st); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", sessionID, err)
	}
	return &st, nil
}

// commit persists st. An ended session is archived if configured and its
// checkpoint removed.
func (s *Service) commit(ctx context.Context, st *State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", st.SessionID, err)
	}
	md := checkpoint.Metadata{Timestamp: time.Now().UTC(), Version: st.Revision}
	if err := s.checkpoints.Save(ctx, st.SessionID, data, md); err != nil {
		return fmt.Errorf("saving session %s: %w", st.SessionID, err)
	}
	if !st.Ended {
		return nil
	}

	if s.config.ArchiveOnEnd && s.archive != nil {
		if err := s.checkpoints.Archive(ctx, st.SessionID, s.archive); err != nil {
			s.logger.Warn("archiving session failed", zap.String("session.id", st.SessionID), zap.Error(err))
		}
	}
	if err := s.checkpoints.Delete(ctx, st.SessionID); err != nil {
		return fmt.Errorf("deleting session %s: %w", st.SessionID, err)
	}
	s.contexts.Invalidate(st.SessionID)
	s.publish(ctx, st, events.TypeSessionEnded, map[string]any{"stats": st.Stats()})
	s.logger.Info("session ended",
		zap.String("session.id", st.SessionID),
		zap.String("user.id", st.UserID),
		zap.Int("mastered", len(st.MasteredConcepts)),
	)
	return nil
}

// classify returns the learner message's mode, or "" without a router or
// on failure.
func (s *Service) classify(ctx context.Context, st *State, message string) classifier.Mode {
	if s.router == nil {
		return ""
	}
	history := make([]string, 0, len(st.History))
	for _, t := range st.History {
		history = append(history, t.Content)
	}
	res, err := s.router.Classify(ctx, message, classifier.Options{History: history})
	if err != nil {
		s.logger.Warn("classifying message failed", zap.String("session.id", st.SessionID), zap.Error(err))
		return ""
	}
	return res.Mode
}

func (s *Service) publish(ctx context.Context, st *State, t events.Type, data map[string]any) {
	err := s.publisher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      t,
		SessionID: st.SessionID,
		UserID:    st.UserID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		s.logger.Warn("publishing event failed",
			zap.String("session.id", st.SessionID),
			zap.String("type", string(t)),
			zap.Error(err),
		)
	}
}

func (s *Service) reply(r *run, mode classifier.Mode) *Reply {
	st := r.st
	return &Reply{
		SessionID:  st.SessionID,
		Messages:   append([]string{}, r.out...),
		NextAction: st.NextAction,
		Phase:      st.Phase,
		Level:      st.StudentLevel,
		Concept:    st.CurrentConcept,
		Ended:      st.Ended,
		Stats:      st.Stats(),
		Mode:       string(mode),
	}
}
