// Package checkpoint persists tutoring session snapshots.
//
// A checkpoint is an opaque JSON snapshot stored under its session id in
// a kvstore.Store with a TTL (seven days by default). Every save is a
// whole overwrite and refreshes the TTL; there is no partial update and
// no version check. The package never decodes the snapshot.
//
// Load distinguishes absence (nil, nil) from a read failure (non-nil
// error). Ended sessions can be copied to a long-term store with Archive
// before Delete.
package checkpoint
