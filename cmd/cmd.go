// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func serviceFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "service",
		Aliases:  []string{"s"},
		Usage:    "Service whose session log to read (youtube, sheets, lastfm, discogs, musicbrainz, mailtm)",
		Required: true,
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, markdown or csv",
		Value:   "text",
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// configCommand handles configuration file operations
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "path",
						Aliases: []string{"p"},
						Usage:   "Where to write the configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration, after environment overrides",
				Action: r.ConfigShow,
			},
		},
	}
}

// sessionsCommand reads the per-service session logs
func sessionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Inspect session logs",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List sessions with their final status",
				Flags:  append([]cli.Flag{serviceFlag(), formatFlag()}, jsonFlags()...),
				Action: r.SessionsList,
			},
			{
				Name:   "scan",
				Usage:  "Find sessions that started but never finished",
				Flags:  []cli.Flag{serviceFlag()},
				Action: r.SessionsScan,
			},
		},
	}
}

// cacheCommand inspects and clears resumable job state
func cacheCommand(r *Runner) *cli.Command {
	jobFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:     "job",
			Aliases:  []string{"j"},
			Usage:    "Job ID",
			Required: true,
		}
	}
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or reset resumable job state",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the cached records and snapshot for a job",
				Flags:  append([]cli.Flag{jobFlag()}, jsonFlags()...),
				Action: r.CacheShow,
			},
			{
				Name:   "reset",
				Usage:  "Delete a job's cache and snapshot so the next run starts from zero",
				Flags:  []cli.Flag{jobFlag()},
				Action: r.CacheReset,
			},
		},
	}
}

// enrichCommand runs resumable enrichment jobs
func enrichCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "enrich",
		Usage: "Resolve collections item by item, resuming interrupted runs",
		Commands: []*cli.Command{
			{
				Name:  "csv",
				Usage: "Resolve an ID list against a CSV catalog keyed by its first column",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "job",
						Aliases:  []string{"j"},
						Usage:    "Job ID; rerun with the same ID to resume",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "source",
						Usage:    "File with one ID per line",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "catalog",
						Usage:    "CSV catalog whose first column is the ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "dest",
						Usage:    "CSV file to write the resolved rows to",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "service",
						Usage: "Session log to record the job in",
						Value: "musicbrainz",
					},
				},
				Action: r.EnrichCSV,
			},
		},
	}
}

// syncCommand runs sync passes and reads their history
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Synchronize collections into destinations",
		Commands: []*cli.Command{
			{
				Name:  "csv",
				Usage: "Sync an ID list into a CSV sheet",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Usage:    "File with one ID per line, in collection order",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "dest",
						Usage:    "Destination CSV sheet; created when missing",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "target",
						Usage: "Name recorded in history (default: the destination path)",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report changes without writing",
					},
					&cli.BoolFlag{
						Name:  "tui",
						Usage: "Show an interactive progress view",
					},
				},
				Action: r.SyncCSV,
			},
			{
				Name:  "history",
				Usage: "List previous sync passes for a target",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "target",
						Usage:    "Target name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					formatFlag(),
				}, jsonFlags()...),
				Action: r.SyncHistory,
			},
		},
	}
}
