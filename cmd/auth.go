package main

import (
	"context"
	"fmt"
	"time"

	"github.com/soniclayer/nowplayd/internal/shared"
	"github.com/urfave/cli/v3"
)

// Connect runs the browser authorization flow and persists the resulting
// tokens.
func (r *Runner) Connect(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	manager, err := r.authManager()
	if err != nil {
		return err
	}

	clientID := cmd.String("client-id")
	if clientID == "" {
		clientID = r.config.Spotify.ClientID
	}
	if clientID == "" {
		return fmt.Errorf("%w: set spotify.client_id in %s or pass --client-id", shared.ErrMissingClientID, r.configPath)
	}

	r.logger.Info("starting authorization, check your browser")
	if !manager.Authenticate(ctx, clientID) {
		return fmt.Errorf("authorization failed")
	}

	r.writePlain("✓ Connected to Spotify\n")
	return nil
}

// Disconnect removes stored credentials.
func (r *Runner) Disconnect(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	manager, err := r.authManager()
	if err != nil {
		return err
	}

	if err := manager.ClearTokens(); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}

	r.writePlain("✓ Disconnected\n")
	return nil
}

// Status reports configuration and authorization state.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	manager, err := r.authManager()
	if err != nil {
		return err
	}

	authenticated := manager.IsAuthenticated()
	status := map[string]any{
		"mode":          r.config.Player.Mode,
		"interval_ms":   int(r.config.Player.Interval() / time.Millisecond),
		"authenticated": authenticated,
	}
	if authenticated && !manager.ExpiresAt().IsZero() {
		status["token_expires_at"] = manager.ExpiresAt().Format(time.RFC3339)
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlain("Mode: %s\n", r.config.Player.Mode)
	r.writePlain("Poll interval: %v\n", r.config.Player.Interval())
	if authenticated {
		r.writePlain("Spotify: ✓ Connected\n")
		if exp := manager.ExpiresAt(); !exp.IsZero() {
			r.writePlain("Access token expires: %s\n", exp.Local().Format(time.Kitchen))
		}
	} else {
		r.writePlain("Spotify: ✗ Not connected (run 'nowplayd connect')\n")
	}
	return nil
}
