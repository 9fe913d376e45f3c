package tutor

import (
	"fmt"
	"time"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/conversation"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
)

var (
	// ErrSessionNotFound is returned for a missing or expired session.
	ErrSessionNotFound = fmt.Errorf("session not found: %w", errdefs.ErrNotFound)

	// ErrSessionEnded is returned when interacting with a finished session.
	ErrSessionEnded = fmt.Errorf("session has ended: %w", errdefs.ErrValidation)

	// ErrInvalidInput is returned for missing or malformed arguments.
	ErrInvalidInput = fmt.Errorf("invalid input: %w", errdefs.ErrValidation)
)

// Level is the learner's difficulty rung.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Down returns the next easier level. Beginner stays beginner.
func (l Level) Down() Level {
	switch l {
	case LevelAdvanced:
		return LevelIntermediate
	default:
		return LevelBeginner
	}
}

// Phase is the coarse stage of a session.
type Phase string

const (
	PhaseIntroduction Phase = "introduction"
	PhaseLearning     Phase = "learning"
	PhasePractice     Phase = "practice"
	PhaseMastery      Phase = "mastery"
)

// Action names a node of the tutoring graph.
type Action string

const (
	actionInitialize Action = "initialize"

	ActionAssess   Action = "assess"
	ActionExplain  Action = "explain"
	ActionQuestion Action = "question"
	// ActionEvaluate means the tutor is waiting for an answer.
	ActionEvaluate Action = "evaluate"
	ActionHint     Action = "hint"
	ActionAdvance  Action = "advance"
	ActionEnd      Action = "end"
)

// PerformanceEntry is one graded answer.
type PerformanceEntry struct {
	Concept       string    `json:"concept"`
	Correct       bool      `json:"correct"`
	Understanding string    `json:"understanding,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// State is the persisted session snapshot.
type State struct {
	SessionID      string `json:"session_id"`
	UserID         string `json:"user_id"`
	Topic          string `json:"topic"`
	CurrentConcept string `json:"current_concept"`
	StudentLevel   Level  `json:"student_level"`
	Phase          Phase  `json:"phase"`

	QuestionsAsked int `json:"questions_asked"`
	CorrectAnswers int `json:"correct_answers"`
	HintsGiven     int `json:"hints_given"`

	History    []conversation.Turn `json:"history"`
	NextAction Action              `json:"next_action"`

	// Revision increases with every change to the history or counters.
	Revision int64 `json:"revision"`

	Performance      []PerformanceEntry `json:"performance,omitempty"`
	LearningGoals    []string           `json:"learning_goals,omitempty"`
	MasteredConcepts []string           `json:"mastered_concepts,omitempty"`
	LastQuestion     string             `json:"last_question,omitempty"`

	Ended     bool      `json:"ended"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats summarizes progress.
type Stats struct {
	QuestionsAsked   int      `json:"questions_asked"`
	CorrectAnswers   int      `json:"correct_answers"`
	HintsGiven       int      `json:"hints_given"`
	Accuracy         float64  `json:"accuracy"`
	TotalAnswered    int      `json:"total_answered"`
	TotalCorrect     int      `json:"total_correct"`
	MasteredConcepts []string `json:"mastered_concepts,omitempty"`
}

// Stats returns the session statistics. Accuracy is over the whole
// performance log.
func (s *State) Stats() Stats {
	st := Stats{
		QuestionsAsked:   s.QuestionsAsked,
		CorrectAnswers:   s.CorrectAnswers,
		HintsGiven:       s.HintsGiven,
		TotalAnswered:    len(s.Performance),
		MasteredConcepts: append([]string(nil), s.MasteredConcepts...),
	}
	for _, p := range s.Performance {
		if p.Correct {
			st.TotalCorrect++
		}
	}
	if st.TotalAnswered > 0 {
		st.Accuracy = float64(st.TotalCorrect) / float64(st.TotalAnswered)
	}
	return st
}

// Profile returns the learner profile used for prompt context.
func (s *State) Profile() conversation.Profile {
	return conversation.Profile{
		Level:          string(s.StudentLevel),
		Topic:          s.Topic,
		CurrentConcept: s.CurrentConcept,
		Goals:          s.LearningGoals,
		Mastered:       s.MasteredConcepts,
	}
}

// Reply is returned by the session operations.
type Reply struct {
	SessionID string `json:"session_id"`

	// Messages are the tutor turns produced by this call, oldest first.
	Messages []string `json:"messages"`

	NextAction Action `json:"next_action"`
	Phase      Phase  `json:"phase"`
	Level      Level  `json:"level"`
	Concept    string `json:"concept"`
	Ended      bool   `json:"ended"`
	Stats      Stats  `json:"stats"`

	// Mode is how the learner's message was classified, when a router is
	// configured.
	Mode string `json:"mode,omitempty"`
}
