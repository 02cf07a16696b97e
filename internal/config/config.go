package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the daemon config file (~/.crewchat/config.toml).
type Config struct {
	// PushURL is the websocket endpoint of the messaging push channel.
	PushURL string `toml:"push_url"`
	// APIBaseURL is the base URL of the messaging REST API
	// (paths are appended under /api/messaging).
	APIBaseURL string `toml:"api_base_url"`
	// AuthToken is the bearer token for both the REST API and the push channel.
	AuthToken string `toml:"auth_token"`
	// UserID identifies the current user; messages it authors never
	// count as unread.
	UserID string `toml:"user_id"`
	// DataDir holds the local history cache and logs. Defaults to
	// ~/.crewchat when empty.
	DataDir string `toml:"data_dir"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".crewchat", "config.toml")
}

// Load reads config from the given path and validates required fields.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Dir(path)
	}
	return &cfg, nil
}

// Validate checks that the fields the daemon cannot run without are set.
func (c *Config) Validate() error {
	if c.PushURL == "" {
		return errors.New("config: push_url is required")
	}
	if c.APIBaseURL == "" {
		return errors.New("config: api_base_url is required")
	}
	if c.UserID == "" {
		return errors.New("config: user_id is required")
	}
	return nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// CachePath returns the sqlite history cache location under DataDir.
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "crewchat.db")
}

// LogPath returns the daemon log file location under DataDir.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "logs", "crewchatd.log")
}
