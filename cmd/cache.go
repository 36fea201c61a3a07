package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/syncx/internal/cache"
	"github.com/desertthunder/syncx/internal/sessionlog"
)

type cacheView struct {
	JobID         string   `json:"job_id"`
	CachePath     string   `json:"cache_path"`
	CacheHeader   []string `json:"cache_header,omitempty"`
	CacheRecords  int      `json:"cache_records"`
	TornTail      bool     `json:"torn_tail"`
	SnapshotPath  string   `json:"snapshot_path"`
	HasSnapshot   bool     `json:"has_snapshot"`
	SnapshotTotal int      `json:"snapshot_total,omitempty"`
	SnapshotItems int      `json:"snapshot_items,omitempty"`
	SnapshotSaved string   `json:"snapshot_saved,omitempty"`
}

// CacheShow describes the stored per-item cache and snapshot for --job.
func (r *Runner) CacheShow(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.String("job")
	info, err := cache.Inspect(r.config.Paths.CacheDir, jobID)
	if err != nil {
		return fmt.Errorf("failed to inspect cache: %w", err)
	}

	if cmd.Bool("json") {
		view := cacheView{
			JobID:         info.JobID,
			CachePath:     info.CachePath,
			CacheHeader:   info.CacheHeader,
			CacheRecords:  info.CacheRecords,
			TornTail:      info.TornTail,
			SnapshotPath:  info.SnapshotPath,
			HasSnapshot:   info.HasSnapshot,
			SnapshotTotal: info.SnapshotTotal,
			SnapshotItems: info.SnapshotItems,
		}
		if info.HasSnapshot {
			view.SnapshotSaved = info.SnapshotSaved.Format(sessionlog.TimeFormat)
		}
		return r.writeJSON(view, cmd.Bool("pretty"))
	}

	if !info.Exists() {
		return r.writePlain("No saved state for job %s\n", jobID)
	}

	r.writePlainHeader("Job " + jobID)
	if info.CacheHeader != nil {
		r.writePlain("Cache:    %s\n", info.CachePath)
		r.writePlain("  columns %s, %d records\n", strings.Join(info.CacheHeader, ","), info.CacheRecords)
		if info.TornTail {
			r.writePlain("  last append was interrupted and will be discarded\n")
		}
	}
	if info.HasSnapshot {
		r.writePlain("Snapshot: %s\n", info.SnapshotPath)
		r.writePlain("  %d of %d items, saved %s\n",
			info.SnapshotItems, info.SnapshotTotal, info.SnapshotSaved.Local().Format(sessionlog.TimeFormat))
	}
	return nil
}

// CacheReset deletes the saved state for --job.
func (r *Runner) CacheReset(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.String("job")
	if err := cache.Reset(r.config.Paths.CacheDir, jobID); err != nil {
		return fmt.Errorf("failed to reset cache: %w", err)
	}
	r.logger.Info("cache reset", "job", jobID)
	return r.writePlain("Reset job %s\n", jobID)
}
