package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/syncx/internal/formatter"
	"github.com/desertthunder/syncx/internal/models"
	"github.com/desertthunder/syncx/internal/sessionlog"
	"github.com/desertthunder/syncx/internal/tasks"
)

type syncRunView struct {
	ID          string `json:"id"`
	Sequence    int    `json:"sequence"`
	Target      string `json:"target"`
	SessionID   string `json:"session_id,omitempty"`
	Added       int    `json:"added"`
	Removed     int    `json:"removed"`
	FullRewrite bool   `json:"full_rewrite"`
	CreatedAt   string `json:"created_at"`
}

// SyncCSV makes the --dest sheet hold the IDs listed in --source, in order.
func (r *Runner) SyncCSV(ctx context.Context, cmd *cli.Command) error {
	source := cmd.String("source")
	destPath := cmd.String("dest")
	target := cmd.String("target")
	if target == "" {
		target = destPath
	}

	ids, err := formatter.ReadIDList(source)
	if err != nil {
		return err
	}
	rows := make([][]string, len(ids))
	for i, id := range ids {
		rows[i] = []string{id}
	}

	history, closeDB, err := r.openHistory()
	if err != nil {
		return err
	}
	defer closeDB()

	dest := formatter.NewCSVSheet(destPath, []string{"id"})
	job := tasks.SyncJob{
		Target:  target,
		Service: sessionlog.Sheets,
		Rows:    rows,
		DryRun:  cmd.Bool("dry-run"),
	}

	var result *tasks.SyncResult
	if cmd.Bool("tui") {
		result, err = r.syncWithTUI(ctx, history, dest, job)
	} else {
		result, err = r.syncWithLogs(ctx, history, dest, job)
	}
	if err != nil {
		return err
	}
	return r.writeSyncResult(result, job.DryRun)
}

func (r *Runner) syncWithLogs(ctx context.Context, history tasks.RunRecorder, dest tasks.Destination, job tasks.SyncJob) (*tasks.SyncResult, error) {
	updates, done := r.logUpdates()
	result, err := r.engine(job.Service, history).SyncCollection(ctx, dest, job, updates)
	close(updates)
	<-done
	return result, err
}

func (r *Runner) writeSyncResult(result *tasks.SyncResult, dryRun bool) error {
	r.writePlainHeader("Sync " + result.Target)
	cs := result.Changes
	r.writePlain("Added:   %d\n", len(cs.Added))
	r.writePlain("Removed: %d\n", len(cs.Removed))
	switch {
	case !cs.HasChanges():
		r.writePlain("Destination already up to date\n")
	case dryRun:
		if cs.RequiresFullRewrite {
			r.writePlain("Order changed: a full rewrite would be needed\n")
		}
		r.writePlain("Dry run, nothing written\n")
	case cs.RequiresFullRewrite:
		r.writePlain("Order changed: destination rewritten\n")
	}
	r.writePlain("Session: %s\n", result.SessionID)
	if result.Run != nil {
		r.writePlain("Run:     #%d %s\n", result.Run.Sequence(), result.Run.Summary())
	}
	return nil
}

// SyncHistory lists recorded sync passes for --target, newest first.
func (r *Runner) SyncHistory(ctx context.Context, cmd *cli.Command) error {
	target := cmd.String("target")

	history, closeDB, err := r.openHistory()
	if err != nil {
		return err
	}
	defer closeDB()

	runs, err := history.ListByTarget(target, cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list sync runs: %w", err)
	}

	if cmd.Bool("json") {
		views := make([]syncRunView, len(runs))
		for i, run := range runs {
			views[i] = toSyncRunView(run)
		}
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		return r.writePlain("No sync runs recorded for %s\n", target)
	}

	table := &formatter.Table{
		Title:  "Sync history for " + target,
		Header: []string{"#", "created", "changes", "session"},
	}
	for _, run := range runs {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(run.Sequence()),
			run.CreatedAt().Local().Format(sessionlog.TimeFormat),
			run.Summary(),
			run.SessionID(),
		})
	}
	out, err := formatter.Render(table, cmd.String("format"))
	if err != nil {
		return err
	}
	_, err = r.output.Write(out)
	return err
}

func toSyncRunView(run *models.SyncRun) syncRunView {
	return syncRunView{
		ID:          run.ID(),
		Sequence:    run.Sequence(),
		Target:      run.Target(),
		SessionID:   run.SessionID(),
		Added:       run.Added(),
		Removed:     run.Removed(),
		FullRewrite: run.FullRewrite(),
		CreatedAt:   run.CreatedAt().Format(sessionlog.TimeFormat),
	}
}
