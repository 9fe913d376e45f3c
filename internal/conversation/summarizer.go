package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/llm"
)

// Summarizer condenses turns into a synopsis of at most maxChars.
type Summarizer interface {
	Summarize(ctx context.Context, turns []Turn, maxChars int) (string, error)
}

// LLMSummarizer summarizes with one completion call.
type LLMSummarizer struct {
	client llm.Client
}

// NewLLMSummarizer creates a summarizer backed by client.
func NewLLMSummarizer(client llm.Client) *LLMSummarizer {
	return &LLMSummarizer{client: client}
}

const summaryPrompt = `Summarize this tutoring conversation for the tutor's own reference.
Keep concepts covered, the learner's misconceptions and open questions.
Write plain prose, at most %d characters.

%s`

// Summarize implements Summarizer.
func (s *LLMSummarizer) Summarize(ctx context.Context, turns []Turn, maxChars int) (string, error) {
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = t.line()
	}
	out, err := s.client.Complete(ctx, fmt.Sprintf(summaryPrompt, maxChars, strings.Join(lines, "\n")), llm.Options{
		Temperature: 0.2,
		MaxTokens:   maxChars/charsPerToken + 16,
	})
	if err != nil {
		return "", err
	}
	return truncateRunes(strings.TrimSpace(out), maxChars), nil
}
