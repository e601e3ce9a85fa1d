package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const appDirName = "chronos"

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Tracking: TrackingConfig{
			SampleInterval:    15 * time.Second,
			IdleThreshold:     180 * time.Second,
			MergeWindow:       300 * time.Second,
			HeartbeatInterval: 30 * time.Second,
		},
		Tray: TrayConfig{
			RefreshInterval: time.Minute,
		},
		Storage: StorageConfig{
			DataDir: DefaultDataDir(),
			DBFile:  "chronos.db",
			Encrypt: true,
		},
		API: APIConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8742",
		},
		Backup: BackupConfig{
			Interval: 24 * time.Hour,
			Keep:     7,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultDataDir returns the per-OS application data directory.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appDirName)
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, appDirName)
		}
		return filepath.Join(home, "AppData", "Local", appDirName)
	default:
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return filepath.Join(dir, appDirName)
		}
		return filepath.Join(home, ".local", "share", appDirName)
	}
}

// DefaultConfigDir returns the directory holding config.yaml and categories.json.
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appDirName)
}

// DefaultConfigPath returns the default config.yaml location.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}
