package tasks

import (
	"fmt"

	"github.com/desertthunder/syncx/internal/changes"
	"github.com/desertthunder/syncx/internal/progress"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ResumeJob Phase = iota
	EnrichItems
	SaveResults
	ReadDestination
	DetectChanges
	ApplyChanges
)

func (p Phase) String() string {
	switch p {
	case ResumeJob:
		return "resume_job"
	case EnrichItems:
		return "enrich_items"
	case SaveResults:
		return "save_results"
	case ReadDestination:
		return "read_destination"
	case DetectChanges:
		return "detect_changes"
	case ApplyChanges:
		return "apply_changes"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(ch chan<- ProgressUpdate, update ProgressUpdate) {
	if ch == nil {
		return
	}
	select {
	case ch <- update:
	default:
		// Channel full, skip this update
	}
}

func resumeUpdate(jobID string, cursor, total int, source string) ProgressUpdate {
	msg := fmt.Sprintf("Starting %s (%d items)", jobID, total)
	if cursor > 0 {
		msg = fmt.Sprintf("Resuming %s from %s at %d/%d", jobID, source, cursor, total)
	}
	return ProgressUpdate{
		Phase:   ResumeJob,
		Step:    cursor,
		Total:   total,
		Message: msg,
	}
}

func itemUpdate(step, total int, key string, snap progress.Snapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnrichItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, key),
		Data:    snap,
	}
}

func savedUpdate(jobID string, count int, interrupted bool) ProgressUpdate {
	msg := fmt.Sprintf("Completed %s (%d items)", jobID, count)
	if interrupted {
		msg = fmt.Sprintf("Interrupted %s, %d items saved", jobID, count)
	}
	return ProgressUpdate{
		Phase:   SaveResults,
		Step:    1,
		Total:   1,
		Message: msg,
	}
}

func readDestinationUpdate(target string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadDestination,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Reading %s...", target),
	}
}

func changesUpdate(cs changes.ChangeSet) ProgressUpdate {
	msg := fmt.Sprintf("%d added, %d removed", len(cs.Added), len(cs.Removed))
	switch {
	case cs.RequiresFullRewrite:
		msg += ", order changed: full rewrite"
	case !cs.HasChanges():
		msg = "No changes"
	}
	return ProgressUpdate{
		Phase:   DetectChanges,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    cs,
	}
}

func applyUpdate(step, total int, action string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ApplyChanges,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, action),
	}
}
