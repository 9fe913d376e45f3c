package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/vectorstore"
)

// axisEmbedder maps each mode's exemplars onto one axis; queries get
// explicit vectors or fall back to the retrieval axis.
type axisEmbedder struct {
	queries map[string][]float32
	err     error
	calls   int
}

func axis(m Mode) []float32 {
	v := make([]float32, len(Modes))
	for i, mode := range Modes {
		if mode == m {
			v[i] = 1
		}
	}
	return v
}

func (e *axisEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = axis(ModeRetrieval)
		for _, m := range Modes {
			for _, ex := range Exemplars[m] {
				if ex == t {
					out[i] = axis(m)
				}
			}
		}
	}
	return out, nil
}

func (e *axisEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.queries[text]; ok {
		return v, nil
	}
	return axis(ModeRetrieval), nil
}

type fakeIndex struct {
	results    []vectorstore.SearchResult
	err        error
	collection string
	opts       vectorstore.SearchOptions
}

func (f *fakeIndex) Search(_ context.Context, collection, _ string, opts vectorstore.SearchOptions) ([]vectorstore.SearchResult, error) {
	f.collection = collection
	f.opts = opts
	return f.results, f.err
}

func TestClassifyWithRules(t *testing.T) {
	c := New(DefaultConfig())

	tests := []struct {
		query    string
		wantMode Mode
		wantConf float64
	}{
		{"hi", ModeConversational, 0.85},
		{"Hello there!", ModeConversational, 0.85},
		{"thanks", ModeConversational, 0.85},
		{"Thank you so much", ModeConversational, 0.85},
		{"ok", ModeConversational, 0.85},
		{"I'm so tired of this", ModeConversational, 0.85},
		{"What is recursion in programming?", ModeRetrieval, 0.7},
		{"Can you explain recursion in programming?", ModeRetrieval, 0.95},
		{"Teach me", ModeRetrieval, 0.6},
		{"blue sky 7", ModeConversational, 0.7},
		{"The weather outside looks gloomy today", ModeRetrieval, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res := c.ClassifyWithRules(tt.query)
			assert.Equal(t, tt.wantMode, res.Mode)
			assert.InDelta(t, tt.wantConf, res.Confidence, 1e-9)
			assert.Equal(t, MethodRule, res.Method)
			assert.NotEmpty(t, res.Rationale)
		})
	}
}

func TestClassify_ForceMode(t *testing.T) {
	c := New(DefaultConfig())

	res, err := c.Classify(context.Background(), "hi", Options{ForceMode: ModePlatformAction})
	require.NoError(t, err)
	assert.Equal(t, ModePlatformAction, res.Mode)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, MethodForced, res.Method)

	_, err = c.Classify(context.Background(), "hi", Options{ForceMode: "telepathy"})
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.ErrorIs(t, err, errdefs.ErrValidation)
}

func TestClassify_EmptyQuery(t *testing.T) {
	c := New(DefaultConfig())
	_, err := c.Classify(context.Background(), "   ", Options{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestClassify_SessionMemory(t *testing.T) {
	c := New(DefaultConfig())
	history := []string{"Recursion is when a function calls itself."}

	tests := []struct {
		name     string
		query    string
		history  []string
		wantMode Mode
		wantConf float64
	}{
		{"short cue", "say that again", history, ModeSessionMemory, 0.85},
		{"recall phrase", "what did you say?", history, ModeSessionMemory, 0.85},
		{"long cue", "Could you go over the part about loops you mentioned earlier", history, ModeSessionMemory, 0.65},
		{"no history", "say that again", nil, ModeConversational, 0.7},
		{"greeting wins", "hi again", history, ModeConversational, 0.85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Classify(context.Background(), tt.query, Options{History: tt.history})
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, res.Mode)
			assert.InDelta(t, tt.wantConf, res.Confidence, 1e-9)
			assert.Equal(t, MethodRule, res.Method)
		})
	}
}

func TestClassify_Semantic(t *testing.T) {
	queries := map[string][]float32{
		"please enroll me now":        {0, 0, 0, 1},
		"that thing from the lecture": {0.2, 0.1, 0.9, 0},
		"mmm whatever works for me":   {0.5, 0.6, 0.5, 0.4},
	}

	tests := []struct {
		name         string
		query        string
		opts         Options
		index        *fakeIndex
		wantMode     Mode
		wantConf     float64
		wantFallback bool
	}{
		{
			name:     "platform action",
			query:    "please enroll me now",
			index:    &fakeIndex{},
			wantMode: ModePlatformAction,
			wantConf: 1,
		},
		{
			name:     "retrieval confirmed",
			query:    "What is recursion in programming?",
			opts:     Options{Semantic: true},
			index:    &fakeIndex{results: []vectorstore.SearchResult{{ID: "a", Score: 0.8}}},
			wantMode: ModeRetrieval,
			wantConf: 1,
		},
		{
			name:         "retrieval rejected by index",
			query:        "What is recursion in programming?",
			opts:         Options{KnowledgeCheck: true},
			index:        &fakeIndex{},
			wantMode:     ModeConversational,
			wantConf:     0,
			wantFallback: true,
		},
		{
			name:     "ambiguous",
			query:    "mmm whatever works for me",
			index:    &fakeIndex{},
			wantMode: ModeConversational,
			wantConf: 0.4,
		},
		{
			name:     "top category",
			query:    "that thing from the lecture",
			opts:     Options{Semantic: true},
			index:    &fakeIndex{},
			wantMode: ModeSessionMemory,
			wantConf: 0.9 / 0.9273618495495703,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(DefaultConfig(),
				WithEmbedder(&axisEmbedder{queries: queries}),
				WithIndex(tt.index),
				WithLogger(zap.NewNop()),
			)
			res, err := c.Classify(context.Background(), tt.query, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, res.Mode)
			assert.Equal(t, MethodSemantic, res.Method)
			assert.InDelta(t, tt.wantConf, res.Confidence, 1e-6)
			assert.Equal(t, tt.wantFallback, res.Fallback)
			if tt.wantFallback {
				assert.NotEmpty(t, res.FallbackReason)
			}
			assert.Len(t, res.Scores, len(Modes))
		})
	}
}

func TestClassify_RetrievalConfirmUsesConfig(t *testing.T) {
	idx := &fakeIndex{results: []vectorstore.SearchResult{{ID: "a", Score: 0.5}}}
	cfg := DefaultConfig()
	cfg.Collection = "python_course"
	c := New(cfg, WithEmbedder(&axisEmbedder{}), WithIndex(idx))

	_, err := c.Classify(context.Background(), "What is recursion in programming?", Options{Semantic: true})
	require.NoError(t, err)
	assert.Equal(t, "python_course", idx.collection)
	assert.Equal(t, 3, idx.opts.TopK)
	assert.InDelta(t, 0.3, idx.opts.MinScore, 1e-6)
}

func TestClassify_SemanticFailureFallsBackToRules(t *testing.T) {
	tests := []struct {
		name     string
		embedder *axisEmbedder
		index    *fakeIndex
	}{
		{"embedder error", &axisEmbedder{err: errors.New("model offline")}, &fakeIndex{}},
		{"index error", &axisEmbedder{}, &fakeIndex{err: vectorstore.ErrNotReady}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(DefaultConfig(), WithEmbedder(tt.embedder), WithIndex(tt.index))
			res, err := c.Classify(context.Background(), "Teach me", Options{})
			require.NoError(t, err)
			assert.Equal(t, ModeRetrieval, res.Mode)
			assert.Equal(t, 0.6, res.Confidence)
			assert.Equal(t, MethodRule, res.Method)
		})
	}
}

func TestClassify_HighRuleConfidenceSkipsSemantic(t *testing.T) {
	emb := &axisEmbedder{}
	c := New(DefaultConfig(), WithEmbedder(emb), WithIndex(&fakeIndex{}))

	res, err := c.Classify(context.Background(), "Can you explain recursion in programming?", Options{})
	require.NoError(t, err)
	assert.Equal(t, MethodRule, res.Method)
	assert.Zero(t, emb.calls)
}

func TestClassify_NoEmbedderUsesRules(t *testing.T) {
	c := New(DefaultConfig())
	res, err := c.Classify(context.Background(), "Teach me", Options{Semantic: true})
	require.NoError(t, err)
	assert.Equal(t, MethodRule, res.Method)
}

func TestStatsAndCollector(t *testing.T) {
	c := New(DefaultConfig())
	ctx := context.Background()

	for _, q := range []string{"hi", "What is recursion in programming?", "blue sky 7"} {
		_, err := c.Classify(ctx, q, Options{})
		require.NoError(t, err)
	}
	_, err := c.Classify(ctx, "anything", Options{ForceMode: ModeRetrieval})
	require.NoError(t, err)

	s := c.Stats()
	assert.Equal(t, int64(4), s.Total)
	assert.Equal(t, int64(2), s.ByMode[ModeConversational])
	assert.Equal(t, int64(2), s.ByMode[ModeRetrieval])
	assert.Equal(t, int64(3), s.ByMethod[MethodRule])
	assert.Equal(t, int64(1), s.ByMethod[MethodForced])
	assert.InDelta(t, (0.85+0.7+0.7+1.0)/4, s.AverageConfidence, 1e-9)

	collector := NewCollector(c)
	assert.Equal(t, len(Modes)+3+2, testutil.CollectAndCount(collector))
	assert.Equal(t, 4, testutil.CollectAndCount(collector, "tutor_classifier_classifications_total"))
}
