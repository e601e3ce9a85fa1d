// Package config loads the chronos YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all chronos configuration.
type Config struct {
	Tracking   TrackingConfig   `yaml:"tracking"`
	Tray       TrayConfig       `yaml:"tray"`
	Storage    StorageConfig    `yaml:"storage"`
	Categories CategoriesConfig `yaml:"categories"`
	API        APIConfig        `yaml:"api"`
	Backup     BackupConfig     `yaml:"backup"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type TrackingConfig struct {
	SampleInterval    time.Duration `yaml:"sample_interval"`
	IdleThreshold     time.Duration `yaml:"idle_threshold"`
	MergeWindow       time.Duration `yaml:"merge_window"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

type TrayConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
	DBFile  string `yaml:"db_file"`
	Encrypt bool   `yaml:"encrypt"`
}

type CategoriesConfig struct {
	File string `yaml:"file"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// BackupConfig controls data snapshots. A zero interval disables the
// daemon's scheduled backups; manual backups still work.
type BackupConfig struct {
	Dir      string        `yaml:"dir"`
	Interval time.Duration `yaml:"interval"`
	Keep     int           `yaml:"keep"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DBPath returns the activity database location.
func (c *Config) DBPath() string {
	return filepath.Join(ExpandHome(c.Storage.DataDir), c.Storage.DBFile)
}

// DataDir returns the expanded data directory.
func (c *Config) DataDir() string {
	return ExpandHome(c.Storage.DataDir)
}

// CategoriesPath returns the category document location.
func (c *Config) CategoriesPath() string {
	if c.Categories.File != "" {
		return ExpandHome(c.Categories.File)
	}
	return filepath.Join(DefaultConfigDir(), "categories.json")
}

// BackupDir returns where backups are kept.
func (c *Config) BackupDir() string {
	if c.Backup.Dir != "" {
		return ExpandHome(c.Backup.Dir)
	}
	return filepath.Join(c.DataDir(), "backups")
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	if c.Logging.File != "" {
		return ExpandHome(c.Logging.File)
	}
	return filepath.Join(c.DataDir(), "chronos.log")
}

// Validate rejects values the tracker cannot run with.
func (c *Config) Validate() error {
	if c.Tracking.SampleInterval <= 0 {
		return fmt.Errorf("tracking.sample_interval must be positive, got %s", c.Tracking.SampleInterval)
	}
	if c.Tracking.IdleThreshold <= 0 {
		return fmt.Errorf("tracking.idle_threshold must be positive, got %s", c.Tracking.IdleThreshold)
	}
	if c.Tracking.MergeWindow <= 0 {
		return fmt.Errorf("tracking.merge_window must be positive, got %s", c.Tracking.MergeWindow)
	}
	if c.Tracking.HeartbeatInterval <= 0 {
		return fmt.Errorf("tracking.heartbeat_interval must be positive, got %s", c.Tracking.HeartbeatInterval)
	}
	if c.Tray.RefreshInterval <= 0 {
		return fmt.Errorf("tray.refresh_interval must be positive, got %s", c.Tray.RefreshInterval)
	}
	if c.Storage.DataDir == "" || c.Storage.DBFile == "" {
		return fmt.Errorf("storage.data_dir and storage.db_file are required")
	}
	if c.Backup.Interval < 0 {
		return fmt.Errorf("backup.interval must not be negative, got %s", c.Backup.Interval)
	}
	if c.Backup.Keep < 0 {
		return fmt.Errorf("backup.keep must not be negative, got %d", c.Backup.Keep)
	}
	if c.API.Enabled && c.API.Addr == "" {
		return fmt.Errorf("api.addr is required when the API is enabled")
	}
	return nil
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read, contains invalid YAML,
// or fails validation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}

	return cfg, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	return LoadOrCreateAt(DefaultConfigPath())
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || (len(path) > 1 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
