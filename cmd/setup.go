package main

import (
	"context"
	"os"

	"github.com/soniclayer/nowplayd/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a starter config file for the user to fill in.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("✓ Created %s\n", configPath)
	r.writePlain("Set spotify.client_id, then run 'nowplayd connect'\n")
	return nil
}

// reloadConfig swaps in the config named by the command's --config flag when
// it differs from the one loaded at startup. Missing files keep the current
// config.
func (r *Runner) reloadConfig(cmd *cli.Command) {
	configPath := cmd.String("config")
	if configPath == "" || configPath == r.configPath {
		return
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Warn("config file not found, using current config", "path", configPath)
		return
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, using current config", "error", err)
		return
	}

	r.config = config
	r.configPath = configPath
	r.auth = nil
}
