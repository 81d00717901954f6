package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

const appDirName = "nowplayd"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Player  PlayerConfig  `toml:"player"`
	Spotify SpotifyConfig `toml:"spotify"`
	Storage StorageConfig `toml:"storage"`
}

// PlayerConfig selects the playback source and polling cadence.
type PlayerConfig struct {
	Mode       string `toml:"mode"` // "local" or "webapi"
	IntervalMS int    `toml:"interval_ms"`
	AppID      string `toml:"app_id"`
}

// SpotifyConfig contains Spotify application credentials for the PKCE flow.
type SpotifyConfig struct {
	ClientID    string `toml:"client_id"`
	RedirectURI string `toml:"redirect_uri"`
	Scopes      string `toml:"scopes"`
}

// StorageConfig contains paths for persisted state. Empty values fall back
// to the user config/cache directories.
type StorageConfig struct {
	TokensPath  string `toml:"tokens_path"`
	HistoryPath string `toml:"history_path"`
	ArtworkDir  string `toml:"artwork_dir"`
}

// Interval returns the polling interval as a [time.Duration], defaulting to 3s.
func (p PlayerConfig) Interval() time.Duration {
	if p.IntervalMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(p.IntervalMS) * time.Millisecond
}

// ResolveTokensPath resolves the token file location, defaulting to
// <user config dir>/nowplayd/tokens.json.
func (s StorageConfig) ResolveTokensPath() (string, error) {
	if s.TokensPath != "" {
		return s.TokensPath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config dir: %w", err)
	}
	return filepath.Join(dir, appDirName, "tokens.json"), nil
}

// ResolveHistoryPath resolves the play-history database location, defaulting to
// <user config dir>/nowplayd/history.db.
func (s StorageConfig) ResolveHistoryPath() (string, error) {
	if s.HistoryPath != "" {
		return s.HistoryPath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config dir: %w", err)
	}
	return filepath.Join(dir, appDirName, "history.db"), nil
}

// ResolveArtworkDir resolves the artwork cache directory, defaulting to
// <user cache dir>/nowplayd/artwork.
func (s StorageConfig) ResolveArtworkDir() (string, error) {
	if s.ArtworkDir != "" {
		return s.ArtworkDir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user cache dir: %w", err)
	}
	return filepath.Join(dir, appDirName, "artwork"), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
