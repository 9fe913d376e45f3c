package vectorstore

import (
	"fmt"
	"regexp"
	"sort"
)

// collectionNamePattern: lowercase letters, numbers, underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateCollectionName rejects names outside ^[a-z0-9_]{1,64}$.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

func validateSearch(collection, query string, opts SearchOptions) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	if query == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidQuery)
	}
	if opts.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidQuery, opts.TopK)
	}
	return opts.Filter.Validate()
}

// scoreFromSimilarity converts cosine similarity to a score via
// distance = 1 - similarity, score = 1 - distance, clamped to [0, 1].
func scoreFromSimilarity(similarity float32) float32 {
	distance := 1 - similarity
	score := 1 - distance
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}

// rankResults sorts by descending score, drops results under minScore and
// truncates to topK.
func rankResults(results []SearchResult, minScore float32, topK int) []SearchResult {
	kept := results[:0]
	for _, r := range results {
		if r.Score >= minScore {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	if len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}
