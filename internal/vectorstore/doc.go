// Package vectorstore stores documents in named collections and ranks them
// by cosine similarity to a query.
//
// Two backends implement Store:
//   - ChromemStore: embedded chromem-go, in memory or persisted to disk (default)
//   - QdrantStore: external Qdrant over gRPC
//
// Every collection is its own namespace with a fixed vector size and the
// cosine metric. Scores are 1 - distance with distance = 1 - cosine,
// clamped to [0, 1] and sorted descending.
//
// Operations against a collection that does not exist fail with
// ErrCollectionNotFound; they never return an empty result instead. The
// Service wrapper additionally fails with ErrNotReady until Start has
// created the configured collections.
//
// # Filters
//
// Filter combines equality on metadata values with inclusive numeric
// ranges:
//
//	f := vectorstore.NewFilterBuilder().
//	    Equals("course", "python").
//	    Range("difficulty", vectorstore.Gte(2), vectorstore.Lte(4)).
//	    Build()
//	results, err := store.Search(ctx, "course_content", "list comprehensions",
//	    vectorstore.SearchOptions{TopK: 5, Filter: f})
package vectorstore
