package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 15*time.Second, cfg.Tracking.SampleInterval)
	assert.Equal(t, 180*time.Second, cfg.Tracking.IdleThreshold)
	assert.Equal(t, 300*time.Second, cfg.Tracking.MergeWindow)
	assert.Equal(t, 30*time.Second, cfg.Tracking.HeartbeatInterval)
	assert.Equal(t, time.Minute, cfg.Tray.RefreshInterval)
	assert.Equal(t, "chronos.db", cfg.Storage.DBFile)
	assert.True(t, cfg.Storage.Encrypt)
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, "127.0.0.1:8742", cfg.API.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 24*time.Hour, cfg.Backup.Interval)
	assert.Equal(t, 7, cfg.Backup.Keep)
	assert.NoError(t, cfg.Validate())
}

func TestLoadValidYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
tracking:
  sample_interval: 5s
  idle_threshold: 5m
storage:
  data_dir: /tmp/chronos-test
  encrypt: false
api:
  enabled: false
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Tracking.SampleInterval)
	assert.Equal(t, 300*time.Second, cfg.Tracking.IdleThreshold)
	assert.Equal(t, 300*time.Second, cfg.Tracking.MergeWindow, "unset keys keep defaults")
	assert.False(t, cfg.Storage.Encrypt)
	assert.False(t, cfg.API.Enabled)
	assert.Equal(t, filepath.Join("/tmp/chronos-test", "chronos.db"), cfg.DBPath())
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("tracking: [unclosed"), 0644))

	_, err := Load(cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("tracking:\n  merge_window: 0s\n"), 0644))

	_, err := Load(cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge_window")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadOrCreateAtWritesDefaults(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Tracking, cfg.Tracking)

	_, err = os.Stat(cfgPath)
	require.NoError(t, err, "default config should be written")

	// Second call reads the file back.
	again, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Tracking, again.Tracking)
	assert.Equal(t, cfg.API, again.API)
}

func TestPathsDerivedFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.DataDir = "/data/chronos"

	assert.Equal(t, filepath.Join("/data/chronos", "chronos.log"), cfg.LogPath())
	assert.Equal(t, filepath.Join(DefaultConfigDir(), "categories.json"), cfg.CategoriesPath())

	cfg.Categories.File = "/etc/chronos/cats.json"
	cfg.Logging.File = "/var/log/chronos.log"
	assert.Equal(t, "/etc/chronos/cats.json", cfg.CategoriesPath())
	assert.Equal(t, "/var/log/chronos.log", cfg.LogPath())

	assert.Equal(t, filepath.Join("/data/chronos", "backups"), cfg.BackupDir())
	cfg.Backup.Dir = "/mnt/backup/chronos"
	assert.Equal(t, "/mnt/backup/chronos", cfg.BackupDir())
}

func TestValidateBackupSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backup.Interval = 0
	assert.NoError(t, cfg.Validate(), "zero interval disables scheduled backups")

	cfg.Backup.Keep = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backup.keep")
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, filepath.Join(home, "data"), ExpandHome("~/data"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}
