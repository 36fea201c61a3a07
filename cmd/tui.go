package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/syncx/internal/shared"
	"github.com/desertthunder/syncx/internal/tasks"
	"github.com/desertthunder/syncx/internal/ui"
)

// syncWithTUI runs the sync pass behind the progress view. Quitting the view cancels the pass, which then
// ends its session as interrupted.
func (r *Runner) syncWithTUI(ctx context.Context, history tasks.RunRecorder, dest tasks.Destination, job tasks.SyncJob) (*tasks.SyncResult, error) {
	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := filepath.Join(r.config.Paths.LogDir, "syncx-tui.log")
	fileLogger, f, err := shared.NewFileLogger(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	defer f.Close()
	fileLogger.SetLevel(r.logger.GetLevel())

	prev := r.logger
	r.SetLogger(fileLogger)
	defer r.SetLogger(prev)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan tasks.ProgressUpdate, 64)
	var result *tasks.SyncResult
	var syncErr error
	go func() {
		defer close(updates)
		result, syncErr = r.engine(job.Service, history).SyncCollection(ctx, dest, job, updates)
	}()

	model := ui.NewProgressModel("Syncing "+job.Target, updates, cancel)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		cancel()
		for range updates {
		}
		if syncErr != nil {
			return nil, syncErr
		}
		return nil, fmt.Errorf("error running TUI: %w", err)
	}
	return result, syncErr
}
