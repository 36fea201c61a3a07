package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/syncx/internal/repositories"
	"github.com/desertthunder/syncx/internal/resilience"
	"github.com/desertthunder/syncx/internal/sessionlog"
	"github.com/desertthunder/syncx/internal/shared"
	"github.com/desertthunder/syncx/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	sessions   *sessionlog.Manager
	limiter    *resilience.RateLimiter
	pipelines  map[sessionlog.Service]*resilience.Pipeline
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Sessions   *sessionlog.Manager // Defaults to a manager over Config.Paths.LogDir
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Sessions == nil {
		opts.Sessions = sessionlog.NewManager(sessionlog.ManagerOpts{
			Dir:    opts.Config.Paths.LogDir,
			Logger: opts.Logger,
		})
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		sessions:   opts.Sessions,
		limiter:    newLimiter(opts.Config),
		pipelines:  map[sessionlog.Service]*resilience.Pipeline{},
	}
}

// newLimiter builds the process-wide throttle. Every pipeline shares it, so at most one remote call is in flight
// and consecutive calls are spaced by the interval whichever services they go to.
func newLimiter(config *shared.Config) *resilience.RateLimiter {
	return resilience.NewRateLimiter(resilience.LimiterOpts{
		Interval:  config.Throttle.Interval.Duration,
		PerMinute: config.Throttle.PerMinute,
	})
}

// SetLogger replaces the logger used by the runner and every component it creates afterwards. The rebuilt
// pipelines keep the runner's limiter.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.sessions = sessionlog.NewManager(sessionlog.ManagerOpts{Dir: r.config.Paths.LogDir, Logger: l})
	r.pipelines = map[sessionlog.Service]*resilience.Pipeline{}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		configCommand, sessionsCommand, cacheCommand, enrichCommand, syncCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// pipeline returns the service's pipeline. Pipelines differ in their quota label and logger; all of them go
// through the runner's single limiter.
func (r *Runner) pipeline(service sessionlog.Service) *resilience.Pipeline {
	if p, ok := r.pipelines[service]; ok {
		return p
	}

	p := resilience.NewPipeline(resilience.PipelineOpts{
		Service: string(service),
		Limiter: r.limiter,
		Policy: resilience.Policy{
			MaxAttempts: r.config.Retry.MaxAttempts,
			BaseDelay:   r.config.Retry.BaseDelay.Duration,
			MaxDelay:    r.config.Retry.MaxDelay.Duration,
			Jitter:      r.config.Retry.Jitter,
		},
		Logger: shared.WithLogger(r.logger, "service", service),
	})
	r.pipelines[service] = p
	return p
}

func (r *Runner) engine(service sessionlog.Service, history tasks.RunRecorder) *tasks.Engine {
	return tasks.NewEngine(tasks.EngineOpts{
		Sessions: r.sessions,
		Pipeline: r.pipeline(service),
		History:  history,
		Logger:   r.logger,
	})
}

// openHistory opens the sync history database, creating it and applying migrations on first use.
func (r *Runner) openHistory() (*repositories.SyncRunRepository, func() error, error) {
	path := r.config.Paths.Database
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := shared.OpenDatabase(path)
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewSyncRunRepository(db), db.Close, nil
}

// logUpdates starts logging progress updates sent on the returned channel. Close it and wait on done.
func (r *Runner) logUpdates() (chan tasks.ProgressUpdate, <-chan struct{}) {
	updates := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range updates {
			r.logger.Info(u.Message, "phase", u.Phase)
		}
	}()
	return updates, done
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
