package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/syncx/internal/changes"
	"github.com/desertthunder/syncx/internal/models"
	"github.com/desertthunder/syncx/internal/resilience"
	"github.com/desertthunder/syncx/internal/sessionlog"
	"github.com/desertthunder/syncx/internal/shared"
)

// Destination is a remote collection addressed by row position, such as a spreadsheet tab.
//
// Positions are 1-based and count [changes.HeaderRows] header rows.
type Destination interface {
	ReadIDs(ctx context.Context) ([]string, error)
	DeleteRows(ctx context.Context, positions []int) error
	AppendRows(ctx context.Context, rows [][]string) error
	Rewrite(ctx context.Context, rows [][]string) error
}

// SyncJob is one sync pass: make the destination hold Rows.
type SyncJob struct {
	Target  string             // Name of the destination in logs and history
	Service sessionlog.Service // Session log to write to; defaults to sheets
	Rows    [][]string         // Current collection in order; column 0 is the row ID
	DryRun  bool               // Detect changes without writing
}

// SyncResult describes what a sync pass found and did.
type SyncResult struct {
	Target    string
	SessionID string
	Changes   changes.ChangeSet
	Applied   bool
	Run       *models.SyncRun // Nil without history or on a dry run
}

func (j SyncJob) ids() ([]string, error) {
	ids := make([]string, len(j.Rows))
	seen := make(map[string]int, len(j.Rows))
	for i, row := range j.Rows {
		if len(row) == 0 || row[0] == "" {
			return nil, fmt.Errorf("%w: row %d has no ID", shared.ErrInvalidInput, i+1)
		}
		if prev, ok := seen[row[0]]; ok {
			return nil, fmt.Errorf("%w: ID %q appears in rows %d and %d", shared.ErrInvalidInput, row[0], prev+1, i+1)
		}
		seen[row[0]] = i
		ids[i] = row[0]
	}
	return ids, nil
}

// SyncCollection patches dest to hold job.Rows.
//
// Removed rows are deleted bottom-up and new rows appended, unless the shared rows changed order, in which case
// the destination is rewritten. Every destination call goes through the engine's pipeline.
func (e *Engine) SyncCollection(ctx context.Context, dest Destination, job SyncJob, updates chan<- ProgressUpdate) (*SyncResult, error) {
	if job.Target == "" {
		return nil, fmt.Errorf("%w: sync target", shared.ErrMissingArgument)
	}
	if job.Service == "" {
		job.Service = sessionlog.Sheets
	}
	current, err := job.ids()
	if err != nil {
		return nil, err
	}

	session, err := e.sessions.Start(job.Service)
	if err != nil {
		return nil, err
	}
	logger := e.logger.With("target", job.Target, "session", session.ID())
	result := &SyncResult{Target: job.Target, SessionID: session.ID()}

	stop := func(err error) (*SyncResult, error) {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			session.Interrupted(map[string]sessionlog.Value{"target": sessionlog.String(job.Target)})
			return result, err
		}
		session.End(false, failureSummary(err))
		logger.Error("sync failed", "error", err)
		return result, err
	}

	sendProgress(updates, readDestinationUpdate(job.Target))
	stored, err := resilience.Execute(ctx, e.pipeline, "read "+job.Target, dest.ReadIDs)
	if err != nil {
		return stop(err)
	}

	cs := changes.Detect(current, stored)
	result.Changes = cs
	sendProgress(updates, changesUpdate(cs))
	session.Event("ChangesDetected", map[string]sessionlog.Value{
		"target":      sessionlog.String(job.Target),
		"added":       sessionlog.Int(len(cs.Added)),
		"removed":     sessionlog.Int(len(cs.Removed)),
		"fullRewrite": sessionlog.Bool(cs.RequiresFullRewrite),
	}, sessionlog.LevelInfo)

	if job.DryRun || !cs.HasChanges() {
		session.End(true, "no writes: "+changeSummary(cs, job.DryRun))
		return result, nil
	}

	if err := e.apply(ctx, dest, job, cs, updates); err != nil {
		return stop(err)
	}
	result.Applied = true

	if e.history != nil {
		run := models.NewSyncRun(job.Target, session.ID(), len(cs.Added), len(cs.Removed), cs.RequiresFullRewrite)
		run.SetCreatedAt(e.now().UTC())
		if err := e.history.Create(run); err != nil {
			logger.Warn("failed to record sync run", "error", err)
		} else {
			result.Run = run
		}
	}

	session.End(true, changeSummary(cs, false))
	logger.Info("sync complete", "added", len(cs.Added), "removed", len(cs.Removed), "full_rewrite", cs.RequiresFullRewrite)
	return result, nil
}

func (e *Engine) apply(ctx context.Context, dest Destination, job SyncJob, cs changes.ChangeSet, updates chan<- ProgressUpdate) error {
	if cs.RequiresFullRewrite {
		sendProgress(updates, applyUpdate(1, 1, fmt.Sprintf("Rewriting %d rows", len(job.Rows))))
		return e.pipeline.Run(ctx, "rewrite "+job.Target, func(ctx context.Context) error {
			return dest.Rewrite(ctx, job.Rows)
		})
	}

	steps := 0
	if len(cs.Removed) > 0 {
		steps++
	}
	if len(cs.Added) > 0 {
		steps++
	}

	step := 0
	if len(cs.Removed) > 0 {
		step++
		positions := cs.DeletionOrder()
		sendProgress(updates, applyUpdate(step, steps, fmt.Sprintf("Deleting %d rows", len(positions))))
		err := e.pipeline.Run(ctx, "delete rows "+job.Target, func(ctx context.Context) error {
			return dest.DeleteRows(ctx, positions)
		})
		if err != nil {
			return err
		}
	}

	if len(cs.Added) > 0 {
		step++
		byID := make(map[string][]string, len(job.Rows))
		for _, row := range job.Rows {
			byID[row[0]] = row
		}
		rows := make([][]string, 0, len(cs.Added))
		for _, id := range cs.Added {
			rows = append(rows, byID[id])
		}
		sendProgress(updates, applyUpdate(step, steps, fmt.Sprintf("Appending %d rows", len(rows))))
		return e.pipeline.Run(ctx, "append rows "+job.Target, func(ctx context.Context) error {
			return dest.AppendRows(ctx, rows)
		})
	}
	return nil
}

func changeSummary(cs changes.ChangeSet, dryRun bool) string {
	s := fmt.Sprintf("+%d -%d", len(cs.Added), len(cs.Removed))
	if cs.RequiresFullRewrite {
		s += " full rewrite"
	}
	if dryRun {
		s += " (dry run)"
	}
	return s
}
