// Package embeddings turns text into fixed-dimension vectors.
//
// Providers (FastEmbed, TEI, OpenAI-compatible) produce raw vectors. The
// Pipeline sits in front of a provider and adds a three-tier lookup:
//
//	L1  in-process expirable LRU
//	L2  kvstore.Store with TTL, shared across instances
//	    model inference on a miss, L2-normalized, written back to both tiers
//
// Input is truncated before hashing so cache keys are stable. Cache
// errors are logged and treated as misses; provider errors are returned.
package embeddings
