// Package sessionlog keeps an append-only JSON event log per service and detects sessions that never finished.
//
// Each line of a service log is one [Entry]. A session is opened with [Manager.Start], which first replays the
// log and marks every session that has a start event but no terminal event as crashed, then writes a new start
// event. The session ends with exactly one of [Session.End] or [Session.Interrupted].
//
// Log writes are best effort. A failed write is reported on the [log.Logger] and never returned from the session
// methods, so a broken log cannot fail the job it describes.
//
// [log.Logger]: https://pkg.go.dev/github.com/charmbracelet/log#Logger
package sessionlog
