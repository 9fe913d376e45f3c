package classifier

import (
	"context"
	"fmt"
	"sort"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/embeddings"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/vectorstore"
)

// Exemplars are the canonical sentences each mode is compared against.
var Exemplars = map[Mode][]string{
	ModeRetrieval: {
		"What is a linked list?",
		"Explain how photosynthesis works",
		"How does recursion work in programming?",
		"Can you teach me about derivatives in calculus?",
		"What is the difference between TCP and UDP?",
		"Why did the Roman Empire fall?",
	},
	ModeConversational: {
		"Hi there, how are you?",
		"Thanks, that was really helpful!",
		"I'm feeling a bit tired today",
		"That's cool",
		"Good morning!",
		"You are funny",
	},
	ModeSessionMemory: {
		"What did you just say?",
		"Can you repeat that?",
		"Go back to what you mentioned earlier",
		"What was the example you gave before?",
		"Explain that again",
		"What was my previous question?",
	},
	ModePlatformAction: {
		"Enroll me in the Python course",
		"Show my progress",
		"Start a new quiz",
		"Cancel my subscription",
		"Open my dashboard",
		"Reset my password",
	},
}

// exemplarIndex holds embedded exemplars, built once per classifier.
type exemplarIndex map[Mode][][]float32

func buildExemplarIndex(ctx context.Context, embedder vectorstore.Embedder) (exemplarIndex, error) {
	idx := make(exemplarIndex, len(Exemplars))
	for _, mode := range Modes {
		vecs, err := embedder.EmbedDocuments(ctx, Exemplars[mode])
		if err != nil {
			return nil, fmt.Errorf("embedding %s exemplars: %w", mode, err)
		}
		idx[mode] = vecs
	}
	return idx, nil
}

// score returns the best similarity per mode.
func (idx exemplarIndex) score(query []float32) (map[Mode]float64, error) {
	scores := make(map[Mode]float64, len(idx))
	for _, mode := range Modes {
		best := 0.0
		for _, v := range idx[mode] {
			sim, err := embeddings.CosineSimilarity(query, v)
			if err != nil {
				return nil, err
			}
			if sim > best {
				best = sim
			}
		}
		scores[mode] = best
	}
	return scores, nil
}

type rankedMode struct {
	mode  Mode
	score float64
}

// rank orders modes by descending score, ties broken by Modes order.
func rank(scores map[Mode]float64) []rankedMode {
	out := make([]rankedMode, 0, len(Modes))
	for _, m := range Modes {
		out = append(out, rankedMode{mode: m, score: scores[m]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}
