package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/syncx/internal/resilience"
	"github.com/desertthunder/syncx/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnvFile(".env"); err != nil {
		logger.Warn("ignoring env file", "error", err)
	}

	configPath := os.Getenv("SYNCX_CONFIG")
	if configPath == "" {
		configPath = "config.toml"
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
			configPath = ""
		}
	} else {
		configPath = ""
	}
	config.ApplyEnv(nil)
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Logging.Level))

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "syncx",
		Usage:    "Resumable, rate-limited sync of collections into spreadsheet-like destinations",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.Run(ctx, os.Args)
	stop()
	os.Exit(exitCode(err, logger.Errorf))
}

// exitCode maps a command error onto the process exit status, reporting it through report.
//
// Quota and retry-exhausted failures print advice for the user; an interrupted run exits 130.
func exitCode(err error, report func(string, ...any)) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		report("interrupted; progress has been saved")
		return 130
	}

	report("%v", err)
	if hint := resilience.UserHint(err); hint != "" {
		fmt.Fprintln(os.Stderr, hint)
		return 2
	}
	return 1
}
