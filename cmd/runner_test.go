package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soniclayer/nowplayd/internal/shared"
	tu "github.com/soniclayer/nowplayd/internal/testing"
	"github.com/urfave/cli/v3"
)

// testRunner builds a Runner whose storage paths live under a temp dir.
func testRunner(t *testing.T, output *bytes.Buffer) *Runner {
	t.Helper()

	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.Storage.TokensPath = filepath.Join(dir, "tokens.json")
	config.Storage.HistoryPath = filepath.Join(dir, "history.db")
	config.Storage.ArtworkDir = filepath.Join(dir, "artwork")

	return NewRunner(RunnerOpts{
		Config: config,
		Output: output,
	})
}

// runCLI executes a single registered command against the runner.
func runCLI(t *testing.T, r *Runner, args ...string) error {
	t.Helper()

	app := &cli.Command{
		Name:     "nowplayd",
		Commands: r.register(),
	}
	return app.Run(context.Background(), append([]string{"nowplayd"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.config.Player.Mode != "local" {
				t.Errorf("default mode = %s", runner.config.Player.Mode)
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limited := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limited})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) != 6 {
			t.Errorf("commands = %d, want 6", len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})

	t.Run("Setup", func(t *testing.T) {
		t.Run("creates config file", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := testRunner(t, output)
			configPath := filepath.Join(t.TempDir(), "config.toml")

			if err := runCLI(t, runner, "setup", "--config", configPath); err != nil {
				t.Fatalf("setup failed: %v", err)
			}

			if _, err := os.Stat(configPath); err != nil {
				t.Errorf("config file not created: %v", err)
			}
			if config, err := shared.LoadConfig(configPath); err != nil {
				t.Errorf("created config unparsable: %v", err)
			} else if config.Player.Mode != "local" {
				t.Errorf("template mode = %s", config.Player.Mode)
			}
		})

		t.Run("refuses to overwrite", func(t *testing.T) {
			runner := testRunner(t, &bytes.Buffer{})
			configPath := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(configPath, []byte("# mine"), 0644); err != nil {
				t.Fatal(err)
			}

			if err := runCLI(t, runner, "setup", "--config", configPath); err == nil {
				t.Error("expected an error for an existing config file")
			}
		})
	})

	t.Run("Status", func(t *testing.T) {
		t.Run("reports not connected", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := testRunner(t, output)

			if err := runCLI(t, runner, "status"); err != nil {
				t.Fatalf("status failed: %v", err)
			}

			result := output.String()
			if !strings.Contains(result, "Not connected") {
				t.Errorf("expected not-connected status, got %s", result)
			}
			if !strings.Contains(result, "Mode: local") {
				t.Errorf("expected mode line, got %s", result)
			}
		})

		t.Run("json output", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := testRunner(t, output)

			if err := runCLI(t, runner, "status", "--json"); err != nil {
				t.Fatalf("status failed: %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"authenticated": false`) {
				t.Errorf("expected json status, got %s", result)
			}
		})
	})

	t.Run("Disconnect", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := testRunner(t, output)

		tokensPath := runner.config.Storage.TokensPath
		if err := os.WriteFile(tokensPath, []byte(`{"refresh_token":"r"}`), 0600); err != nil {
			t.Fatal(err)
		}

		if err := runCLI(t, runner, "disconnect"); err != nil {
			t.Fatalf("disconnect failed: %v", err)
		}

		if _, err := os.Stat(tokensPath); !os.IsNotExist(err) {
			t.Error("token file should be removed")
		}
		if !strings.Contains(output.String(), "Disconnected") {
			t.Errorf("output = %s", output.String())
		}
	})

	t.Run("Connect Requires Client ID", func(t *testing.T) {
		runner := testRunner(t, &bytes.Buffer{})
		runner.config.Spotify.ClientID = ""

		err := runCLI(t, runner, "connect")
		if err == nil || !strings.Contains(err.Error(), "client") {
			t.Errorf("expected missing client id error, got %v", err)
		}
	})

	t.Run("History", func(t *testing.T) {
		t.Run("empty log", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := testRunner(t, output)

			if err := runCLI(t, runner, "history"); err != nil {
				t.Fatalf("history failed: %v", err)
			}
			if !strings.Contains(output.String(), "No plays recorded yet") {
				t.Errorf("output = %s", output.String())
			}
		})
	})

	t.Run("Run Rejects Unknown Mode", func(t *testing.T) {
		runner := testRunner(t, &bytes.Buffer{})

		err := runCLI(t, runner, "run", "--mode", "cassette", "--plain")
		if err == nil || !strings.Contains(err.Error(), "unknown player mode") {
			t.Errorf("expected unknown mode error, got %v", err)
		}
	})
}
