package infra

import (
	"os"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// mockProcessInspector is a test double for domain.ProcessInspector
type mockProcessInspector struct {
	runningPIDs    map[int]bool
	names          map[int]string
	terminatedPIDs []int
}

func newMockProcessInspector() *mockProcessInspector {
	return &mockProcessInspector{
		runningPIDs: make(map[int]bool),
		names:       make(map[int]string),
	}
}

func (m *mockProcessInspector) Name(pid int) (string, error) {
	name, ok := m.names[pid]
	if !ok {
		return "", os.ErrNotExist
	}
	return name, nil
}

func (m *mockProcessInspector) IsRunning(pid int) bool {
	return m.runningPIDs[pid]
}

func (m *mockProcessInspector) Terminate(pid int) error {
	m.terminatedPIDs = append(m.terminatedPIDs, pid)
	delete(m.runningPIDs, pid)
	return nil
}

func (m *mockProcessInspector) GetCurrentPID() int {
	return os.Getpid()
}

func (m *mockProcessInspector) SetRunning(pid int, running bool) {
	m.runningPIDs[pid] = running
}

// Ensure mockProcessInspector implements domain.ProcessInspector
var _ domain.ProcessInspector = (*mockProcessInspector)(nil)
