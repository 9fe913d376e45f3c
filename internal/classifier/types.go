package classifier

import (
	"fmt"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
)

// Mode is how a message should be handled.
type Mode string

const (
	ModeRetrieval      Mode = "retrieval"
	ModeConversational Mode = "conversational"
	ModeSessionMemory  Mode = "session-memory"
	ModePlatformAction Mode = "platform-action"
)

// Modes lists every mode in a fixed order.
var Modes = []Mode{ModeRetrieval, ModeConversational, ModeSessionMemory, ModePlatformAction}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeRetrieval, ModeConversational, ModeSessionMemory, ModePlatformAction:
		return true
	}
	return false
}

// Method is the stage that decided a result.
type Method string

const (
	MethodRule     Method = "rule"
	MethodSemantic Method = "semantic"
	MethodForced   Method = "forced"
)

// Sentinel errors.
var (
	ErrEmptyQuery  = fmt.Errorf("query is empty: %w", errdefs.ErrValidation)
	ErrInvalidMode = fmt.Errorf("invalid mode: %w", errdefs.ErrValidation)
)

// Result is a routing decision.
type Result struct {
	Mode       Mode    `json:"mode"`
	Confidence float64 `json:"confidence"`
	Method     Method  `json:"method"`
	Rationale  string  `json:"rationale"`

	// Fallback is set when semantic retrieval was rejected by the index.
	Fallback       bool   `json:"fallback,omitempty"`
	FallbackReason string `json:"fallback_reason,omitempty"`

	// Scores holds per-mode semantic scores when Stage B ran.
	Scores map[Mode]float64 `json:"scores,omitempty"`
}

// Options tune a single classification.
type Options struct {
	// History holds prior turns of the conversation, oldest first.
	History []string

	// KnowledgeCheck sends rule-level retrieval decisions through the
	// semantic stage so they are confirmed against the index.
	KnowledgeCheck bool

	// ForceMode, when set, bypasses classification.
	ForceMode Mode

	// Semantic requests the semantic stage regardless of rule confidence.
	Semantic bool
}
