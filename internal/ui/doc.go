// Package ui renders sync progress and session history for the terminal.
//
//   - [RenderSnapshot] : one-shot progress line with a bar, throughput and ETA, for plain console output
//   - [RenderSessions] : session history table with colored statuses
//   - [ProgressModel] : bubbletea model that follows a job's [tasks.ProgressUpdate] channel for --tui runs
//
// The [ProgressModel] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// The quit binding cancels the running job; the model exits once the job closes its update channel.
package ui
