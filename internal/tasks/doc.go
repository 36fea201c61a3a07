// Package tasks runs long sync jobs against rate-limited services with real-time progress reporting.
//
// # Core Operations
//
//  1. [RunEnrichment] : resumable multi-item job
//     - Opens a session log session for the job's service
//     - Resumes from the per-item cache, then the snapshot, then zero
//     - Runs each remaining item through the resilience pipeline
//     - Appends each result to the cache as soon as it completes
//     - Removes the cache and snapshot once every item is done
//
//  2. [SyncCollection] : one sync pass against a positional [Destination]
//     - Reads the IDs the destination holds
//     - Detects additions, removals and reordering
//     - Deletes removed rows bottom-up and appends new rows, or rewrites everything when order changed
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Interruption
//
// Cancelling the context stops a job between items. [RunEnrichment] then saves a snapshot and records the
// session as interrupted, and a later run with the same job ID continues from the same item.
package tasks
