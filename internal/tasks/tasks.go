// package tasks implements resumable enrichment jobs and destination sync passes.
//
// The core abstraction is Engine, which ties the session log, the resilience pipeline and sync history together.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/syncx/internal/models"
	"github.com/desertthunder/syncx/internal/resilience"
	"github.com/desertthunder/syncx/internal/sessionlog"
	"github.com/desertthunder/syncx/internal/shared"
)

// RunRecorder stores the outcome of a sync pass.
type RunRecorder interface {
	Create(run *models.SyncRun) error
}

// EngineOpts contains the dependencies of an [Engine].
type EngineOpts struct {
	Sessions *sessionlog.Manager  // Required
	Pipeline *resilience.Pipeline // Required; every remote call goes through it
	History  RunRecorder          // Optional sync history
	Logger   *log.Logger          // Defaults to a quiet logger
	Now      func() time.Time     // Defaults to time.Now
}

// Engine runs jobs. It holds no per-job state and may run jobs for different services concurrently.
type Engine struct {
	sessions *sessionlog.Manager
	pipeline *resilience.Pipeline
	history  RunRecorder
	logger   *log.Logger
	now      func() time.Time
}

// NewEngine creates a new Engine with the provided dependencies.
func NewEngine(opts EngineOpts) *Engine {
	e := &Engine{
		sessions: opts.Sessions,
		pipeline: opts.Pipeline,
		history:  opts.History,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if e.logger == nil {
		e.logger = shared.NewQuietLogger()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// failureSummary is the session summary for a job that stopped on err.
func failureSummary(err error) string {
	if hint := resilience.UserHint(err); hint != "" {
		return err.Error() + ": " + hint
	}
	return err.Error()
}
