package tutor

import (
	"fmt"
	"strings"
)

// Each prompt opens with a fixed instruction line so replies can be
// attributed in logs and test doubles.
const (
	instrExplain  = "Explain the concept below to the learner."
	instrQuestion = "Ask the learner one Socratic question."
	instrEvaluate = "Grade the learner's answer."
	instrHint     = "Give the learner a hint."
	instrSummary  = "Close the tutoring session."
)

type promptInput struct {
	concept  string
	level    Level
	context  string
	material []string
	question string
	answer   string
	stats    Stats
	mastered []string
	topic    string
}

func writeContext(b *strings.Builder, in promptInput) {
	if in.context != "" {
		b.WriteString("\n\n")
		b.WriteString(in.context)
	}
	if len(in.material) > 0 {
		b.WriteString("\n\nReference material:")
		for _, m := range in.material {
			b.WriteString("\n- ")
			b.WriteString(m)
		}
	}
}

func explainPrompt(in promptInput) string {
	var b strings.Builder
	b.WriteString(instrExplain)
	fmt.Fprintf(&b, "\nConcept: %s\nLevel: %s\n", in.concept, in.level)
	b.WriteString("Use language suited to the level, one short example and no more than three paragraphs.")
	writeContext(&b, in)
	return b.String()
}

func questionPrompt(in promptInput) string {
	var b strings.Builder
	b.WriteString(instrQuestion)
	fmt.Fprintf(&b, "\nConcept: %s\nLevel: %s\n", in.concept, in.level)
	b.WriteString("The question must make the learner reason about the concept. Do not include the answer. Reply with the question only.")
	writeContext(&b, in)
	return b.String()
}

func evaluatePrompt(in promptInput) string {
	var b strings.Builder
	b.WriteString(instrEvaluate)
	fmt.Fprintf(&b, "\nConcept: %s\nLevel: %s\nQuestion: %s\nAnswer: %s\n", in.concept, in.level, in.question, in.answer)
	b.WriteString(`Reply with a JSON object only:
{"correct": true|false, "feedback": "<one or two sentences for the learner>", "understanding": "none|partial|good|excellent", "suggest_hint": true|false}`)
	writeContext(&b, in)
	return b.String()
}

func hintPrompt(in promptInput) string {
	var b strings.Builder
	b.WriteString(instrHint)
	fmt.Fprintf(&b, "\nConcept: %s\nLevel: %s\nQuestion: %s\nLast answer: %s\n", in.concept, in.level, in.question, in.answer)
	b.WriteString("Guide the learner toward the answer without revealing it. One or two sentences.")
	writeContext(&b, in)
	return b.String()
}

func summaryPrompt(in promptInput) string {
	var b strings.Builder
	b.WriteString(instrSummary)
	fmt.Fprintf(&b, "\nTopic: %s\nLevel: %s\nAnswered: %d, correct: %d, hints: %d\n",
		in.topic, in.level, in.stats.TotalAnswered, in.stats.TotalCorrect, in.stats.HintsGiven)
	if len(in.mastered) > 0 {
		fmt.Fprintf(&b, "Mastered: %s\n", strings.Join(in.mastered, ", "))
	}
	b.WriteString("Summarize what was covered, name one thing to review and encourage the learner. At most one paragraph.")
	writeContext(&b, in)
	return b.String()
}

func statsLine(s Stats) string {
	return fmt.Sprintf("You answered %d questions with %d correct (%.0f%%) and used %d hints.",
		s.TotalAnswered, s.TotalCorrect, s.Accuracy*100, s.HintsGiven)
}
