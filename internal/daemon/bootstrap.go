package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// StartDaemon spawns `chronos run` detached from the calling terminal and
// returns the child's PID.
func StartDaemon(configPath string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("locate executable: %w", err)
	}

	cmd := daemonCommand(executable, configPath)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start daemon: %w", err)
	}
	pid := cmd.Process.Pid

	// The child outlives us; release it so no zombie is left behind.
	_ = cmd.Process.Release()
	return pid, nil
}

func daemonCommand(executable, configPath string) *exec.Cmd {
	args := []string{"run"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	cmd := exec.Command(executable, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session (detach from terminal)
	}

	// No stdin/stdout/stderr - the daemon logs to its own file
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd
}

// StopDaemon terminates the registered daemon and returns its PID.
// A stale registry entry is cleared and reported as ErrNotRunning.
func StopDaemon(registry domain.DaemonRegistry, processes domain.ProcessInspector) (int, error) {
	info, err := registry.Get()
	if err != nil {
		return 0, err
	}
	if info == nil {
		return 0, domain.ErrNotRunning
	}

	if !processes.IsRunning(info.PID) {
		if err := registry.Clear(); err != nil {
			return 0, err
		}
		return 0, domain.ErrNotRunning
	}

	if err := processes.Terminate(info.PID); err != nil {
		return 0, fmt.Errorf("terminate pid %d: %w", info.PID, err)
	}
	return info.PID, registry.Clear()
}
