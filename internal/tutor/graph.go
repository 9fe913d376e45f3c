package tutor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/conversation"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/events"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/llm"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/vectorstore"
)

// run carries one pass through the graph.
type run struct {
	st     *State
	answer string
	out    []string
}

// yields reports whether the graph stops after node and waits for the
// learner.
func yields(node Action) bool {
	switch node {
	case ActionExplain, ActionQuestion, ActionEnd:
		return true
	}
	return false
}

// execute runs nodes starting at from until a yield point. Each completed
// node is committed before the next starts; a failing node returns its
// error with nothing of its own written.
// A failure also drops the cached context, because uncommitted revision
// numbers are reused by the next call.
func (s *Service) execute(ctx context.Context, r *run, from Action) error {
	node := from
	for {
		next, err := s.step(ctx, r, node)
		if err != nil {
			s.contexts.Invalidate(r.st.SessionID)
			s.logger.Warn("tutor node failed",
				zap.String("session.id", r.st.SessionID),
				zap.String("node", string(node)),
				zap.Error(err),
			)
			return fmt.Errorf("%s: %w", node, err)
		}
		r.st.NextAction = next
		if err := s.commit(ctx, r.st); err != nil {
			s.contexts.Invalidate(r.st.SessionID)
			return err
		}
		if s.nodeCounter != nil {
			s.nodeCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("node", string(node))))
		}
		s.publish(ctx, r.st, events.TypeSessionTransition, map[string]any{
			"from":  string(node),
			"to":    string(next),
			"phase": string(r.st.Phase),
			"level": string(r.st.StudentLevel),
		})
		if yields(node) {
			return nil
		}
		node = next
	}
}

func (s *Service) step(ctx context.Context, r *run, node Action) (Action, error) {
	switch node {
	case actionInitialize:
		return s.initialize(ctx, r)
	case ActionAssess:
		return s.assess(ctx, r)
	case ActionExplain:
		return s.explain(ctx, r)
	case ActionQuestion:
		return s.question(ctx, r)
	case ActionEvaluate:
		return s.evaluate(ctx, r)
	case ActionHint:
		return s.hint(ctx, r)
	case ActionAdvance:
		return s.advance(ctx, r)
	case ActionEnd:
		return s.end(ctx, r)
	}
	return "", fmt.Errorf("unknown node %q: %w", node, ErrInvalidInput)
}

func (s *Service) addTurn(st *State, role conversation.Role, content string) {
	now := time.Now().UTC()
	st.History = append(st.History, conversation.Turn{Role: role, Content: content, Timestamp: now})
	if over := len(st.History) - s.config.HistoryLimit; over > 0 {
		st.History = slices.Delete(st.History, 0, over)
	}
	s.touch(st)
}

func (s *Service) touch(st *State) {
	st.Revision++
	st.UpdatedAt = time.Now().UTC()
}

func (s *Service) say(r *run, content string) {
	s.addTurn(r.st, conversation.RoleAssistant, content)
	r.out = append(r.out, content)
}

func (s *Service) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	out, err := s.llm.Complete(ctx, prompt, llm.Options{Temperature: temperature, MaxTokens: s.config.MaxTokens})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", llm.ErrEmptyResponse
	}
	return out, nil
}

// promptContext assembles the conversational context for st.
func (s *Service) promptContext(ctx context.Context, st *State) (string, error) {
	c, err := s.contexts.BuildContext(ctx, st.SessionID, st.Revision, st.History, st.Profile())
	if err != nil {
		return "", fmt.Errorf("building context: %w", err)
	}
	return c.Format(), nil
}

// material looks up reference snippets for query. Lookup failures are
// logged and yield no material.
func (s *Service) material(ctx context.Context, query string, topK int) []vectorstore.SearchResult {
	if s.index == nil || topK <= 0 {
		return nil
	}
	results, err := s.index.Search(ctx, s.config.Collection, query, vectorstore.SearchOptions{
		TopK:     topK,
		MinScore: s.config.MinMaterialScore,
	})
	if err != nil {
		s.logger.Warn("reference lookup failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	return results
}

func snippets(results []vectorstore.SearchResult, maxChars int) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		text := strings.Join(strings.Fields(r.Content), " ")
		if runes := []rune(text); len(runes) > maxChars {
			text = string(runes[:maxChars]) + "..."
		}
		out = append(out, text)
	}
	return out
}

// goalFrom names a learning goal after a search hit: its "concept" or
// "title" metadata, else the first line of its content.
func goalFrom(r vectorstore.SearchResult) string {
	for _, key := range []string{"concept", "title"} {
		if v, ok := r.Metadata[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	line, _, _ := strings.Cut(strings.TrimSpace(r.Content), "\n")
	if runes := []rune(line); len(runes) > 80 {
		line = string(runes[:80])
	}
	return strings.TrimSpace(line)
}

func (s *Service) initialize(ctx context.Context, r *run) (Action, error) {
	st := r.st
	st.Phase = PhaseIntroduction
	for _, hit := range s.material(ctx, st.Topic, s.config.GoalsTopK) {
		if g := goalFrom(hit); g != "" && !slices.Contains(st.LearningGoals, g) {
			st.LearningGoals = append(st.LearningGoals, g)
		}
	}
	s.addTurn(st, conversation.RoleSystem,
		fmt.Sprintf("Tutoring session started: topic %q at %s level.", st.Topic, st.StudentLevel))
	return ActionAssess, nil
}

func (s *Service) assess(_ context.Context, r *run) (Action, error) {
	st := r.st
	s.say(r, fmt.Sprintf("Welcome! We'll work through %s at a %s level. I'll explain each idea and then ask you questions to check your understanding.",
		st.Topic, st.StudentLevel))
	st.Phase = PhaseLearning
	return ActionExplain, nil
}

func (s *Service) explain(ctx context.Context, r *run) (Action, error) {
	st := r.st
	if st.CurrentConcept == "" {
		st.CurrentConcept = defaultConcept(st.Topic)
	}
	pc, err := s.promptContext(ctx, st)
	if err != nil {
		return "", err
	}
	out, err := s.complete(ctx, explainPrompt(promptInput{
		concept:  st.CurrentConcept,
		level:    st.StudentLevel,
		context:  pc,
		material: snippets(s.material(ctx, st.CurrentConcept, s.config.MaterialTopK), 400),
	}), s.config.Temperature)
	if err != nil {
		return "", err
	}
	s.say(r, out)
	st.Phase = PhaseLearning
	return ActionQuestion, nil
}

func (s *Service) question(ctx context.Context, r *run) (Action, error) {
	st := r.st
	pc, err := s.promptContext(ctx, st)
	if err != nil {
		return "", err
	}
	out, err := s.complete(ctx, questionPrompt(promptInput{
		concept: st.CurrentConcept,
		level:   st.StudentLevel,
		context: pc,
	}), s.config.Temperature)
	if err != nil {
		return "", err
	}
	st.LastQuestion = out
	s.say(r, out)
	st.Phase = PhasePractice
	return ActionEvaluate, nil
}

func (s *Service) evaluate(ctx context.Context, r *run) (Action, error) {
	st := r.st
	pc, err := s.promptContext(ctx, st)
	if err != nil {
		return "", err
	}
	raw, err := s.complete(ctx, evaluatePrompt(promptInput{
		concept:  st.CurrentConcept,
		level:    st.StudentLevel,
		question: st.LastQuestion,
		answer:   r.answer,
		context:  pc,
	}), s.config.GradingTemperature)
	if errors.Is(err, errdefs.ErrMalformedResponse) {
		s.logger.Warn("ungradable reply, asking again",
			zap.String("session.id", st.SessionID),
			zap.Error(err),
		)
		return ActionQuestion, nil
	}
	if err != nil {
		return "", err
	}

	var (
		correct     bool
		suggestHint bool
		feedback    string
		understood  string
	)
	switch reply := llm.ParseStructured(raw, "correct", "feedback").(type) {
	case llm.Malformed:
		s.logger.Warn("ungradable reply, asking again",
			zap.String("session.id", st.SessionID),
			zap.String("reason", reply.Reason),
		)
		return ActionQuestion, nil
	case llm.Parsed:
		var ok bool
		if correct, ok = reply.Bool("correct"); !ok {
			s.logger.Warn("ungradable reply, asking again",
				zap.String("session.id", st.SessionID),
				zap.String("reason", "correct is not a boolean"),
			)
			return ActionQuestion, nil
		}
		suggestHint, _ = reply.Bool("suggest_hint")
		feedback = reply.String("feedback")
		understood = reply.String("understanding")
	default:
		return "", fmt.Errorf("unexpected reply type %T", reply)
	}

	st.Performance = append(st.Performance, PerformanceEntry{
		Concept:       st.CurrentConcept,
		Correct:       correct,
		Understanding: understood,
		Timestamp:     time.Now().UTC(),
	})
	st.QuestionsAsked++
	if correct {
		st.CorrectAnswers++
	}
	s.touch(st)
	if s.answerCounter != nil {
		s.answerCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("correct", correct)))
	}

	if IsStruggling(st.Performance) && st.StudentLevel != LevelBeginner {
		from := st.StudentLevel
		st.StudentLevel = st.StudentLevel.Down()
		s.logger.Info("lowering difficulty",
			zap.String("session.id", st.SessionID),
			zap.String("from", string(from)),
			zap.String("to", string(st.StudentLevel)),
		)
	}
	if feedback != "" {
		s.say(r, feedback)
	}

	mastered := IsMastered(st.Performance, st.CurrentConcept)
	covered := len(st.MasteredConcepts)
	if !slices.Contains(st.MasteredConcepts, st.CurrentConcept) {
		covered++
	}
	t := decide(grade{
		correct:     correct,
		mastered:    mastered,
		exhausted:   covered >= s.config.MaxConcepts,
		suggestHint: suggestHint,
		hintsGiven:  st.HintsGiven,
		hintBudget:  s.config.HintBudget,
	})
	s.logger.Debug("graded answer",
		zap.String("session.id", st.SessionID),
		zap.Bool("correct", correct),
		zap.Bool("mastered", mastered),
		zap.Stringer("transition", t),
	)

	switch t {
	case TransitionEnd:
		if !slices.Contains(st.MasteredConcepts, st.CurrentConcept) {
			st.MasteredConcepts = append(st.MasteredConcepts, st.CurrentConcept)
		}
		st.Phase = PhaseMastery
		return ActionEnd, nil
	case TransitionAdvance:
		return ActionAdvance, nil
	case TransitionRetryQuestion:
		return ActionQuestion, nil
	case TransitionHint:
		return ActionHint, nil
	case TransitionReExplain:
		return ActionExplain, nil
	}
	return "", fmt.Errorf("unhandled transition %s", t)
}

func (s *Service) hint(ctx context.Context, r *run) (Action, error) {
	st := r.st
	pc, err := s.promptContext(ctx, st)
	if err != nil {
		return "", err
	}
	out, err := s.complete(ctx, hintPrompt(promptInput{
		concept:  st.CurrentConcept,
		level:    st.StudentLevel,
		question: st.LastQuestion,
		answer:   r.answer,
		context:  pc,
	}), s.config.Temperature)
	if err != nil {
		return "", err
	}
	st.HintsGiven++
	s.say(r, out)
	return ActionQuestion, nil
}

func (s *Service) advance(_ context.Context, r *run) (Action, error) {
	st := r.st
	st.Phase = PhaseMastery
	done := st.CurrentConcept
	if !slices.Contains(st.MasteredConcepts, done) {
		st.MasteredConcepts = append(st.MasteredConcepts, done)
	}
	next := nextConcept(st)
	st.CurrentConcept = next
	st.QuestionsAsked = 0
	st.CorrectAnswers = 0
	st.HintsGiven = 0
	st.LastQuestion = ""
	s.say(r, fmt.Sprintf("Well done, you've mastered %s. Next up: %s.", done, next))
	st.Phase = PhaseLearning
	return ActionExplain, nil
}

func (s *Service) end(ctx context.Context, r *run) (Action, error) {
	st := r.st
	pc, err := s.promptContext(ctx, st)
	if err != nil {
		return "", err
	}
	stats := st.Stats()
	out, err := s.complete(ctx, summaryPrompt(promptInput{
		topic:    st.Topic,
		level:    st.StudentLevel,
		stats:    stats,
		mastered: st.MasteredConcepts,
		context:  pc,
	}), s.config.Temperature)
	if err != nil {
		return "", err
	}
	s.say(r, out+"\n\n"+statsLine(stats))
	st.Ended = true
	return ActionEnd, nil
}
