package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

const registryFileName = "daemon.json"

// FileRegistry implements domain.DaemonRegistry with a JSON file in the
// data directory. Writes are serialized across processes with flock.
type FileRegistry struct {
	path      string
	processes domain.ProcessInspector
}

// NewFileRegistry creates a registry at <dataDir>/daemon.json.
func NewFileRegistry(dataDir string, pi domain.ProcessInspector) *FileRegistry {
	return NewFileRegistryWithPath(filepath.Join(dataDir, registryFileName), pi)
}

// NewFileRegistryWithPath creates a registry at a specific path (for testing).
func NewFileRegistryWithPath(path string, pi domain.ProcessInspector) *FileRegistry {
	return &FileRegistry{
		path:      path,
		processes: pi,
	}
}

// GetRegistryPath returns the registry file path.
func (r *FileRegistry) GetRegistryPath() string {
	return r.path
}

// Register records the running daemon, replacing any previous record.
func (r *FileRegistry) Register(info domain.DaemonInfo) error {
	return r.withLock(func() error {
		if info.StartedAt.IsZero() {
			info.StartedAt = time.Now()
		}
		info.LastHeartbeat = time.Now().Unix()
		return r.atomicWrite(&info)
	})
}

// UpdateHeartbeat updates timestamp for liveness check.
func (r *FileRegistry) UpdateHeartbeat() error {
	return r.withLock(func() error {
		info, err := r.Get()
		if err != nil {
			return err
		}
		if info == nil {
			return domain.ErrNotRunning
		}
		info.LastHeartbeat = time.Now().Unix()
		return r.atomicWrite(info)
	})
}

// Get returns the registered daemon, or nil when none is registered.
func (r *FileRegistry) Get() (*domain.DaemonInfo, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var info domain.DaemonInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", r.path, err)
	}
	return &info, nil
}

// IsAlive checks whether the registered PID is still running.
func (r *FileRegistry) IsAlive() (bool, error) {
	info, err := r.Get()
	if err != nil {
		return false, err
	}
	if info == nil || info.PID == 0 {
		return false, nil
	}
	return r.processes.IsRunning(info.PID), nil
}

// Clear removes the registry file. A missing file is not an error.
func (r *FileRegistry) Clear() error {
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (r *FileRegistry) withLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	lockFile, err := os.OpenFile(r.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN) }()

	return fn()
}

// atomicWrite writes the record to a temp file and renames it into place.
func (r *FileRegistry) atomicWrite(info *domain.DaemonInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", r.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Ensure FileRegistry implements domain.DaemonRegistry.
var _ domain.DaemonRegistry = (*FileRegistry)(nil)
