// Package repositories implements SQLite persistence for sync history.
//
//   - [SyncRunRepository] : one row per sync pass, queried by destination target
//
// Sequence numbers give runs a stable insertion order independent of UUIDs and timestamps that share a second.
// [NextSequence] increments the per-table counter inside the caller's transaction, so a failed insert never
// consumes a sequence value.
package repositories
