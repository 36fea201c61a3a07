package main

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/syncx/internal/shared"
)

// ConfigInit writes the embedded default configuration to --path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	return r.writePlain("Wrote %s\n", path)
}

// ConfigShow prints the configuration in effect as TOML.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	if r.configPath != "" {
		r.writePlain("# loaded from %s\n", r.configPath)
	} else {
		r.writePlain("# built-in defaults\n")
	}
	if err := toml.NewEncoder(r.output).Encode(r.config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
