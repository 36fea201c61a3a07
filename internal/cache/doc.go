// Package cache persists the progress of long multi-item jobs so an interrupted job resumes where it stopped.
//
// # Per-item cache
//
// [Store] keeps one append-only CSV file per job. The first line is the [Codec] header; every later line is
// one completed record in processing order. [Store.Append] flushes and fsyncs before it returns, so the number of
// records [Store.Load] returns is a resumption cursor that survives a kill at any point.
//
// # Snapshots
//
// [SnapshotStore] saves the whole job state (expected item count, update time, records) as one JSON
// document, written atomically. It is the second resumption path, used when the per-item cache is missing or
// cannot be trusted.
//
// [Resume] picks the per-item cache first, the snapshot second and otherwise starts from zero.
package cache
