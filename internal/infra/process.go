// Package infra implements infrastructure concerns: SQLite storage, OS
// probes and the files the tracker keeps next to its database.
package infra

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// ProcessInspectorImpl implements domain.ProcessInspector using gopsutil.
type ProcessInspectorImpl struct{}

// NewProcessInspector creates a new process inspector.
func NewProcessInspector() *ProcessInspectorImpl {
	return &ProcessInspectorImpl{}
}

// Name returns the executable name of pid, without directory or .exe suffix.
func (pi *ProcessInspectorImpl) Name(pid int) (string, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	name, err := p.Name()
	if err != nil || name == "" {
		exe, exeErr := p.Exe()
		if exeErr != nil {
			if err != nil {
				return "", err
			}
			return "", exeErr
		}
		name = filepath.Base(exe)
	}
	return strings.TrimSuffix(name, ".exe"), nil
}

// IsRunning checks if a PID exists and is running.
func (pi *ProcessInspectorImpl) IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	running, err := process.PidExists(int32(pid))
	if err != nil {
		return false
	}
	return running
}

// Terminate asks a process to exit with SIGTERM.
func (pi *ProcessInspectorImpl) Terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}

// GetCurrentPID returns the current process PID.
func (pi *ProcessInspectorImpl) GetCurrentPID() int {
	return os.Getpid()
}

// Ensure ProcessInspectorImpl implements domain.ProcessInspector.
var _ domain.ProcessInspector = (*ProcessInspectorImpl)(nil)
