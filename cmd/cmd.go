// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand writes a starter config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create a starter configuration file",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// connectCommand runs the browser OAuth flow.
func connectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "connect",
		Usage: "Authorize with Spotify in the browser",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "client-id",
				Usage: "Spotify application client ID (overrides config)",
			},
		},
		Action: r.Connect,
	}
}

// disconnectCommand forgets stored credentials.
func disconnectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "disconnect",
		Usage:  "Forget stored Spotify credentials",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Disconnect,
	}
}

// statusCommand reports authorization state.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show authorization and configuration status",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// runCommand starts the now-playing watcher.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Watch current playback and display it",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Playback source: \"local\" or \"webapi\" (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Print track changes as lines instead of the TUI",
			},
		},
		Action: r.Run,
	}
}

// historyCommand prints the listening log.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recently played tracks",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of plays to show",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}
