// Package kvstore provides the durable keyed store with TTL that backs the
// embedding L2 cache and session checkpoints.
//
// Three backends implement Store:
//
//   - redis: shared across instances (go-redis v9)
//   - badger: embedded, on-disk, used for single-node deployments and the
//     long-term archive
//   - memory: process-local (go-cache), used in tests and development
//
// Values are opaque bytes. A ttl of zero or less stores the key without
// expiry.
package kvstore
