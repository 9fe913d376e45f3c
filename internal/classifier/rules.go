package classifier

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Rule weights and confidences.
const (
	weightQuestion = 0.4
	weightDomain   = 0.3
	weightLearning = 0.3

	confConversationalPattern = 0.85
	confAmbiguousRetrieve     = 0.6
	confShortUnmatched        = 0.7
	confDefaultRetrieve       = 0.5
	maxRuleConfidence         = 0.95

	shortQueryChars = 20
)

var (
	conversationalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*(hi|hello|hey|hiya|howdy|yo|greetings|good\s+(morning|afternoon|evening|night))\b`),
		regexp.MustCompile(`(?i)^\s*(thanks|thank\s+you|thx|ty|cheers)\b`),
		regexp.MustCompile(`(?i)^\s*(ok|okay|k|cool|great|nice|awesome|got\s+it|i\s+see|sure|yes|yeah|yep|no|nope|alright|bye|goodbye|see\s+you)\s*[.!]*\s*$`),
		regexp.MustCompile(`(?i)\b(i\s+(feel|felt|am\s+feeling)|i'?m\s+(so\s+|really\s+|very\s+)?(tired|bored|happy|sad|excited|frustrated|stressed|anxious|glad)|i\s+(love|hate|enjoy)\s+(this|it|that|you)|how\s+are\s+you|you'?re\s+(great|awesome|funny|the\s+best))\b`),
	}

	questionPattern = regexp.MustCompile(`(?i)(^\s*(what|how|why|when|where|which|who|whom|whose|can|could|would|should|does|do|did|is|are|was|were|will)\b|\?\s*$)`)

	domainPattern = regexp.MustCompile(`(?i)\b(programming|code|coding|algorithms?|functions?|variables?|recursion|recursive|loops?|arrays?|lists?|classes|objects?|databases?|sql|python|javascript|java|golang|math(ematics)?|algebra|calculus|geometry|equations?|derivatives?|integrals?|physics|chemistry|biology|history|grammar|theorems?|formulas?|statistics|probability|science|economics|photosynthesis|molecules?|atoms?|cells?|evolution|data\s+structures?|machine\s+learning|networks?)\b`)

	learningPattern = regexp.MustCompile(`(?i)\b(explain|teach|learn|learning|understand|study|tutorial|lesson|show\s+me\s+how|walk\s+me\s+through|help\s+me\s+with|practice|examples?\s+of|definition\s+of|define|describe)\b`)
)

// ruleOutcome is a Stage A result plus whether a conversational pattern
// short-circuited it.
type ruleOutcome struct {
	Result
	patternMatch bool
}

func classifyRules(query string) ruleOutcome {
	for _, p := range conversationalPatterns {
		if p.MatchString(query) {
			return ruleOutcome{
				Result: Result{
					Mode:       ModeConversational,
					Confidence: confConversationalPattern,
					Method:     MethodRule,
					Rationale:  "matched conversational pattern",
				},
				patternMatch: true,
			}
		}
	}

	var score float64
	var matched []string
	if questionPattern.MatchString(query) {
		score += weightQuestion
		matched = append(matched, "question form")
	}
	if domainPattern.MatchString(query) {
		score += weightDomain
		matched = append(matched, "domain keyword")
	}
	if learningPattern.MatchString(query) {
		score += weightLearning
		matched = append(matched, "learning intent")
	}
	// Guard against float drift, e.g. 0.4+0.3 = 0.7000000000000001.
	score = roundScore(score)

	groups := "no rule groups"
	if len(matched) > 0 {
		groups = strings.Join(matched, ", ")
	}

	switch {
	case score >= 0.6:
		return ruleOutcome{Result: Result{
			Mode:       ModeRetrieval,
			Confidence: min(score, maxRuleConfidence),
			Method:     MethodRule,
			Rationale:  fmt.Sprintf("retrieval score %.2f (%s)", score, groups),
		}}
	case score >= 0.3:
		return ruleOutcome{Result: Result{
			Mode:       ModeRetrieval,
			Confidence: confAmbiguousRetrieve,
			Method:     MethodRule,
			Rationale:  fmt.Sprintf("ambiguous retrieval score %.2f (%s)", score, groups),
		}}
	case utf8.RuneCountInString(strings.TrimSpace(query)) < shortQueryChars:
		return ruleOutcome{Result: Result{
			Mode:       ModeConversational,
			Confidence: confShortUnmatched,
			Method:     MethodRule,
			Rationale:  "short message without retrieval signals",
		}}
	default:
		return ruleOutcome{Result: Result{
			Mode:       ModeRetrieval,
			Confidence: confDefaultRetrieve,
			Method:     MethodRule,
			Rationale:  "no strong signals, defaulting to retrieval",
		}}
	}
}

func roundScore(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

// Session-memory cues.
var (
	referentialCue = regexp.MustCompile(`(?i)\b(that|it|this|those|these|earlier|previous|previously|again|above|before|last\s+one)\b`)
	recallPhrase   = regexp.MustCompile(`(?i)(what\s+did\s+you\s+(just\s+)?say|you\s+(just\s+)?(said|mentioned)|\brepeat\b|say\s+that\s+again)`)
)

const (
	confSessionMemoryShort = 0.85
	confSessionMemoryCue   = 0.65
	shortQueryTokens       = 5
)

// sessionMemory reports a session-memory result when the query refers
// back to earlier turns.
func sessionMemory(query string, history []string) (Result, bool) {
	if len(history) == 0 {
		return Result{}, false
	}
	if !referentialCue.MatchString(query) && !recallPhrase.MatchString(query) {
		return Result{}, false
	}
	if len(strings.Fields(query)) <= shortQueryTokens {
		return Result{
			Mode:       ModeSessionMemory,
			Confidence: confSessionMemoryShort,
			Method:     MethodRule,
			Rationale:  "short back-reference to the conversation",
		}, true
	}
	return Result{
		Mode:       ModeSessionMemory,
		Confidence: confSessionMemoryCue,
		Method:     MethodRule,
		Rationale:  "back-reference to the conversation",
	}, true
}
