package conversation

import (
	"fmt"
	"strings"
	"time"
)

// Role is the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one message in a conversation.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func (t Turn) line() string {
	return fmt.Sprintf("%s: %s", t.Role, t.Content)
}

// Profile describes the learner.
type Profile struct {
	Name           string   `json:"name,omitempty"`
	Level          string   `json:"level,omitempty"`
	Topic          string   `json:"topic,omitempty"`
	CurrentConcept string   `json:"current_concept,omitempty"`
	Goals          []string `json:"goals,omitempty"`
	Mastered       []string `json:"mastered,omitempty"`
}

// IsEmpty reports whether no profile field is set.
func (p Profile) IsEmpty() bool {
	return p.Name == "" && p.Level == "" && p.Topic == "" && p.CurrentConcept == "" &&
		len(p.Goals) == 0 && len(p.Mastered) == 0
}

// Format renders the profile as prompt text.
func (p Profile) Format() string {
	if p.IsEmpty() {
		return ""
	}
	var b strings.Builder
	b.WriteString("Learner profile:")
	if p.Name != "" {
		fmt.Fprintf(&b, "\n- name: %s", p.Name)
	}
	if p.Level != "" {
		fmt.Fprintf(&b, "\n- level: %s", p.Level)
	}
	if p.Topic != "" {
		fmt.Fprintf(&b, "\n- topic: %s", p.Topic)
	}
	if p.CurrentConcept != "" {
		fmt.Fprintf(&b, "\n- current concept: %s", p.CurrentConcept)
	}
	if len(p.Goals) > 0 {
		fmt.Fprintf(&b, "\n- goals: %s", strings.Join(p.Goals, "; "))
	}
	if len(p.Mastered) > 0 {
		fmt.Fprintf(&b, "\n- mastered: %s", strings.Join(p.Mastered, "; "))
	}
	return b.String()
}

// Context is the assembled conversational context for one prompt.
type Context struct {
	SessionID string `json:"session_id"`
	Revision  int64  `json:"revision"`

	Profile string `json:"profile,omitempty"`
	Summary string `json:"summary,omitempty"`

	// Older holds pre-window turns kept verbatim because there were too
	// few to summarize. Recent holds the last K turns.
	Older  []Turn `json:"older,omitempty"`
	Recent []Turn `json:"recent"`

	EstimatedTokens int  `json:"estimated_tokens"`
	Truncated       bool `json:"truncated,omitempty"`
	FromCache       bool `json:"from_cache,omitempty"`
}

// Format renders the context as prompt text.
func (c *Context) Format() string {
	var parts []string
	if c.Profile != "" {
		parts = append(parts, c.Profile)
	}
	if c.Summary != "" {
		parts = append(parts, "Summary of earlier conversation:\n"+c.Summary)
	}
	turns := append(append([]Turn(nil), c.Older...), c.Recent...)
	if len(turns) > 0 {
		lines := make([]string, len(turns))
		for i, t := range turns {
			lines[i] = t.line()
		}
		parts = append(parts, "Conversation:\n"+strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}

// EstimateTokens approximates tokens as characters / 4, rounded up.
func EstimateTokens(s string) int {
	n := len([]rune(s))
	return (n + charsPerToken - 1) / charsPerToken
}

const charsPerToken = 4
