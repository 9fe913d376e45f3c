package tutor

import (
	"fmt"
	"slices"
	"strings"
)

const (
	masteryWindow   = 5
	masteryAccuracy = 0.8
	struggleWindow  = 3
)

// IsMastered reports whether concept has at least five graded answers and
// at least 80% of the last five are correct.
func IsMastered(log []PerformanceEntry, concept string) bool {
	var window []bool
	for _, e := range log {
		if e.Concept == concept {
			window = append(window, e.Correct)
		}
	}
	if len(window) < masteryWindow {
		return false
	}
	correct := 0
	for _, ok := range window[len(window)-masteryWindow:] {
		if ok {
			correct++
		}
	}
	return float64(correct)/masteryWindow >= masteryAccuracy
}

// IsStruggling reports whether the log has at least three entries and
// none of the last three is correct.
func IsStruggling(log []PerformanceEntry) bool {
	if len(log) < struggleWindow {
		return false
	}
	for _, e := range log[len(log)-struggleWindow:] {
		if e.Correct {
			return false
		}
	}
	return true
}

// Transition is the outcome of grading an answer.
type Transition int

const (
	TransitionHint Transition = iota
	TransitionAdvance
	TransitionRetryQuestion
	TransitionReExplain
	TransitionEnd
)

func (t Transition) String() string {
	switch t {
	case TransitionHint:
		return "hint"
	case TransitionAdvance:
		return "advance"
	case TransitionRetryQuestion:
		return "retry_question"
	case TransitionReExplain:
		return "re_explain"
	case TransitionEnd:
		return "end"
	}
	return fmt.Sprintf("transition(%d)", int(t))
}

// grade is the graded outcome fed to decide.
type grade struct {
	correct     bool
	mastered    bool
	exhausted   bool
	suggestHint bool
	hintsGiven  int
	hintBudget  int
}

func decide(g grade) Transition {
	switch {
	case g.correct && g.mastered && g.exhausted:
		return TransitionEnd
	case g.correct && g.mastered:
		return TransitionAdvance
	case g.correct:
		return TransitionRetryQuestion
	case g.suggestHint || g.hintsGiven < g.hintBudget:
		return TransitionHint
	default:
		return TransitionReExplain
	}
}

var conceptStages = []string{
	"fundamentals",
	"core concepts",
	"common patterns",
	"intermediate techniques",
	"advanced topics",
	"best practices",
}

func defaultConcept(topic string) string {
	return topic + " " + conceptStages[0]
}

// nextConcept picks the first learning goal not yet covered, then the
// first topic stage not yet covered.
func nextConcept(s *State) string {
	covered := func(c string) bool {
		return strings.EqualFold(c, s.CurrentConcept) ||
			slices.ContainsFunc(s.MasteredConcepts, func(m string) bool { return strings.EqualFold(m, c) })
	}
	for _, g := range s.LearningGoals {
		if !covered(g) {
			return g
		}
	}
	for _, stage := range conceptStages {
		if c := s.Topic + " " + stage; !covered(c) {
			return c
		}
	}
	return fmt.Sprintf("%s part %d", s.Topic, len(s.MasteredConcepts)+1)
}

var exitPhrases = map[string]bool{
	"quit":            true,
	"exit":            true,
	"stop":            true,
	"bye":             true,
	"goodbye":         true,
	"end":             true,
	"end session":     true,
	"end the session": true,
	"stop session":    true,
	"i'm done":        true,
	"i am done":       true,
	"done for today":  true,
}

// IsExitPhrase reports whether message asks to finish the session.
func IsExitPhrase(message string) bool {
	m := strings.ToLower(strings.TrimSpace(message))
	m = strings.TrimRight(m, ".!? ")
	m = strings.Join(strings.Fields(m), " ")
	return exitPhrases[m]
}
