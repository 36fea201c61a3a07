package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/syncx/internal/cache"
	"github.com/desertthunder/syncx/internal/progress"
	"github.com/desertthunder/syncx/internal/resilience"
	"github.com/desertthunder/syncx/internal/sessionlog"
	"github.com/desertthunder/syncx/internal/shared"
)

// EnrichmentJob describes a multi-item job whose results are cached one by one.
//
// A job is identified by ID across runs: a run with the same ID and the same number of items continues from the
// first item without a cached result.
type EnrichmentJob[I, R any] struct {
	ID        string
	Service   sessionlog.Service
	Items     []I
	Key       func(item I) string // Names an item in logs and progress; defaults to its index
	Enrich    func(ctx context.Context, item I) (R, error)
	Store     *cache.Store[R]
	Snapshots *cache.SnapshotStore[R] // Optional second resumption path
}

// EnrichmentResult contains the records of a job, in item order.
type EnrichmentResult[R any] struct {
	JobID       string
	SessionID   string
	Records     []R
	Resumed     int // Records recovered from an earlier run
	Source      cache.Source
	Interrupted bool
}

func (j EnrichmentJob[I, R]) validate() error {
	switch {
	case j.ID == "":
		return fmt.Errorf("%w: job ID", shared.ErrMissingArgument)
	case j.Service == "":
		return fmt.Errorf("%w: job service", shared.ErrMissingArgument)
	case j.Enrich == nil:
		return fmt.Errorf("%w: enrich function", shared.ErrMissingArgument)
	case j.Store == nil:
		return fmt.Errorf("%w: cache store", shared.ErrMissingArgument)
	}
	return nil
}

func (j EnrichmentJob[I, R]) key(i int) string {
	if j.Key != nil {
		return j.Key(j.Items[i])
	}
	return fmt.Sprintf("%s#%d", j.ID, i+1)
}

// enrichRun is the state of one RunEnrichment call.
type enrichRun[I, R any] struct {
	e       *Engine
	job     EnrichmentJob[I, R]
	session *sessionlog.Session
	tracker *progress.Tracker
	updates chan<- ProgressUpdate
	logger  *log.Logger
	result  *EnrichmentResult[R]
}

// RunEnrichment runs every item of job that has no cached result yet, in order.
//
// Each result is appended to the per-item cache before the next item starts. When ctx is cancelled the run saves
// a snapshot, marks the session interrupted and returns the partial result with the context error. A quota or
// retry-exhausted failure ends the session as failed; the cache is kept so the next run resumes.
func RunEnrichment[I, R any](ctx context.Context, e *Engine, job EnrichmentJob[I, R], updates chan<- ProgressUpdate) (*EnrichmentResult[R], error) {
	if err := job.validate(); err != nil {
		return nil, err
	}

	session, err := e.sessions.Start(job.Service)
	if err != nil {
		return nil, err
	}
	run := &enrichRun[I, R]{
		e:       e,
		job:     job,
		session: session,
		tracker: progress.NewTracker(e.now),
		updates: updates,
		logger:  e.logger.With("job", job.ID, "session", session.ID()),
	}

	total := len(job.Items)
	point, err := cache.Resume(job.Store, job.Snapshots, job.ID, total)
	if err != nil {
		session.End(false, failureSummary(err))
		return nil, err
	}
	if point.Discarded {
		run.logger.Warn("discarded unreadable cache", "path", job.Store.Path(job.ID))
		session.Event("CacheDiscarded", map[string]sessionlog.Value{
			"job":  sessionlog.String(job.ID),
			"path": sessionlog.String(job.Store.Path(job.ID)),
		}, sessionlog.LevelWarn)
	}

	run.result = &EnrichmentResult[R]{
		JobID:     job.ID,
		SessionID: session.ID(),
		Records:   point.Records,
		Resumed:   point.Cursor(),
		Source:    point.Source,
	}

	run.tracker.Initialize([]progress.Unit{{Name: job.ID, Size: total}})
	if err := run.tracker.StartUnit(job.ID, total); err != nil {
		return nil, run.fail(err)
	}
	if err := run.tracker.UpdateProgress(point.Cursor()); err != nil {
		return nil, run.fail(err)
	}

	if point.Cursor() > 0 {
		run.logger.Info("resuming job", "source", point.Source, "cursor", point.Cursor(), "total", total)
		session.Event("JobResumed", map[string]sessionlog.Value{
			"job":    sessionlog.String(job.ID),
			"source": sessionlog.String(point.Source.String()),
			"cursor": sessionlog.Int(point.Cursor()),
			"total":  sessionlog.Int(total),
		}, sessionlog.LevelInfo)
	}
	sendProgress(updates, resumeUpdate(job.ID, point.Cursor(), total, point.Source.String()))

	for i := point.Cursor(); i < total; i++ {
		if ctx.Err() != nil {
			return run.interrupt(ctx.Err())
		}

		item := job.Items[i]
		key := job.key(i)
		rec, err := resilience.Execute(ctx, e.pipeline, key, func(ctx context.Context) (R, error) {
			return job.Enrich(ctx, item)
		})
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return run.interrupt(err)
			}
			return run.result, run.fail(err)
		}

		if err := job.Store.Append(job.ID, rec); err != nil {
			return run.result, run.fail(fmt.Errorf("%w: cache %s: %v", shared.ErrStorage, key, err))
		}
		run.result.Records = append(run.result.Records, rec)
		if err := run.tracker.UpdateProgress(i + 1); err != nil {
			return run.result, run.fail(err)
		}
		sendProgress(updates, itemUpdate(i+1, total, key, run.tracker.Snapshot()))
	}

	return run.complete()
}

func (r *enrichRun[I, R]) complete() (*EnrichmentResult[R], error) {
	if err := r.tracker.CompleteUnit(); err != nil {
		return r.result, r.fail(err)
	}

	if err := r.job.Store.Delete(r.job.ID); err != nil {
		r.logger.Warn("failed to remove cache", "error", err)
	}
	if r.job.Snapshots != nil {
		if err := r.job.Snapshots.Delete(r.job.ID); err != nil {
			r.logger.Warn("failed to remove snapshot", "error", err)
		}
	}

	count := len(r.result.Records)
	r.session.End(true, fmt.Sprintf("%d items (%d resumed)", count, r.result.Resumed))
	sendProgress(r.updates, savedUpdate(r.job.ID, count, false))
	r.logger.Info("job complete", "items", count, "resumed", r.result.Resumed)
	return r.result, nil
}

// interrupt records a cancelled run and returns cause with the partial result.
func (r *enrichRun[I, R]) interrupt(cause error) (*EnrichmentResult[R], error) {
	r.result.Interrupted = true
	r.saveSnapshot()

	snap := r.tracker.Snapshot()
	r.session.Interrupted(map[string]sessionlog.Value{
		"job":       sessionlog.String(r.job.ID),
		"processed": sessionlog.Int(snap.CompletedItems),
		"total":     sessionlog.Int(snap.TotalItems),
	})
	sendProgress(r.updates, savedUpdate(r.job.ID, len(r.result.Records), true))
	r.logger.Warn("job interrupted", "processed", snap.CompletedItems, "total", snap.TotalItems)
	return r.result, cause
}

// fail ends the session as failed. Completed records stay cached for the next run.
func (r *enrichRun[I, R]) fail(err error) error {
	if r.result != nil {
		r.saveSnapshot()
	}
	r.session.End(false, failureSummary(err))
	r.logger.Error("job failed", "error", err)
	return err
}

func (r *enrichRun[I, R]) saveSnapshot() {
	if r.job.Snapshots == nil {
		return
	}
	err := r.job.Snapshots.Save(&cache.Snapshot[R]{
		JobID:         r.job.ID,
		ExpectedTotal: len(r.job.Items),
		Records:       r.result.Records,
	})
	if err != nil {
		r.logger.Warn("failed to save snapshot", "error", err)
	}
}
