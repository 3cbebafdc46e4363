// Package config handles the XDG configuration directory, the TOML config
// file, and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	// AppName is the application directory name.
	AppName = "tabdash"

	// ConfigFile is the TOML configuration filename.
	ConfigFile = "config.toml"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// DBFile is the SQLite database backing the local storage area.
	DBFile = "tabdash.db"
)

// Provider names accepted in configuration.
const (
	ProviderLocal       = "local"
	ProviderTodoist     = "todoist"
	ProviderGoogleTasks = "google-tasks"
)

// TodoistConfig configures the Todoist backend.
type TodoistConfig struct {
	APIToken string `toml:"api_token"`
}

// GoogleConfig configures the Google-backed providers.
type GoogleConfig struct {
	ClientID string `toml:"client_id"`
}

// StorageConfig configures the durable storage area.
type StorageConfig struct {
	Path string `toml:"path"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `toml:"-"`

	// Debug enables debug logging.
	Debug bool `toml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `toml:"-"`

	// Provider selects the task backend.
	Provider string `toml:"provider"`

	Todoist TodoistConfig `toml:"todoist"`
	Google  GoogleConfig  `toml:"google"`
	Storage StorageConfig `toml:"storage"`
}

// New creates a Config from the default or specified config directory,
// loading config.toml when present and applying environment overrides.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}

	cfg := &Config{Dir: dir, Provider: ProviderLocal}

	path := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", ConfigFile, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TABDASH_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("TODOIST_API_TOKEN"); v != "" {
		cfg.Todoist.APIToken = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.Google.ClientID = v
	}
	if v := os.Getenv("TABDASH_DB"); v != "" {
		cfg.Storage.Path = v
	}
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// DBPath returns the SQLite database path backing the local storage area.
func (c *Config) DBPath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(c.Dir, DBFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
