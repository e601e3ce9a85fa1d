package infra

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// newTestRegistry creates a registry in a temp directory for testing.
func newTestRegistry(t *testing.T) (*FileRegistry, *mockProcessInspector) {
	t.Helper()
	pi := newMockProcessInspector()
	return NewFileRegistry(t.TempDir(), pi), pi
}

func TestFileRegistry_RegisterAndGet(t *testing.T) {
	reg, _ := newTestRegistry(t)

	info, err := reg.Get()
	require.NoError(t, err)
	assert.Nil(t, info, "nothing registered yet")

	started := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	require.NoError(t, reg.Register(domain.DaemonInfo{
		PID:       4242,
		StartedAt: started,
		APIAddr:   "127.0.0.1:8742",
		Version:   "1.0.0",
	}))

	info, err = reg.Get()
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, 4242, info.PID)
	assert.True(t, started.Equal(info.StartedAt))
	assert.Equal(t, "127.0.0.1:8742", info.APIAddr)
	assert.Equal(t, "1.0.0", info.Version)
	assert.InDelta(t, time.Now().Unix(), info.LastHeartbeat, 5)

	stat, err := os.Stat(reg.GetRegistryPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), stat.Mode().Perm())
	assert.Equal(t, registryFileName, filepath.Base(reg.GetRegistryPath()))
}

func TestFileRegistry_ReRegisterOverwrites(t *testing.T) {
	reg, _ := newTestRegistry(t)

	require.NoError(t, reg.Register(domain.DaemonInfo{PID: 1111}))
	require.NoError(t, reg.Register(domain.DaemonInfo{PID: 2222}))

	info, err := reg.Get()
	require.NoError(t, err)
	assert.Equal(t, 2222, info.PID)
	assert.False(t, info.StartedAt.IsZero())
}

func TestFileRegistry_UpdateHeartbeat(t *testing.T) {
	reg, _ := newTestRegistry(t)

	err := reg.UpdateHeartbeat()
	require.ErrorIs(t, err, domain.ErrNotRunning)

	require.NoError(t, reg.Register(domain.DaemonInfo{PID: 1234}))

	// Backdate the heartbeat so the update is observable.
	info, err := reg.Get()
	require.NoError(t, err)
	info.LastHeartbeat = 100
	data, err := json.Marshal(info)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(reg.GetRegistryPath(), data, 0600))

	require.NoError(t, reg.UpdateHeartbeat())

	info, err = reg.Get()
	require.NoError(t, err)
	assert.Greater(t, info.LastHeartbeat, int64(100))
	assert.Equal(t, 1234, info.PID)
}

func TestFileRegistry_IsAlive(t *testing.T) {
	tests := []struct {
		name    string
		pid     int
		running bool
		want    bool
	}{
		{name: "registered and running", pid: 500, running: true, want: true},
		{name: "registered but exited", pid: 500, running: false, want: false},
		{name: "nothing registered", pid: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, pi := newTestRegistry(t)
			if tt.pid != 0 {
				require.NoError(t, reg.Register(domain.DaemonInfo{PID: tt.pid}))
			}
			pi.SetRunning(tt.pid, tt.running)

			alive, err := reg.IsAlive()
			require.NoError(t, err)
			assert.Equal(t, tt.want, alive)
		})
	}
}

func TestFileRegistry_Clear(t *testing.T) {
	reg, _ := newTestRegistry(t)

	require.NoError(t, reg.Clear(), "clearing an empty registry is fine")

	require.NoError(t, reg.Register(domain.DaemonInfo{PID: 1}))
	require.NoError(t, reg.Clear())

	info, err := reg.Get()
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestFileRegistry_CorruptFile(t *testing.T) {
	reg, _ := newTestRegistry(t)
	require.NoError(t, os.WriteFile(reg.GetRegistryPath(), []byte("{not json"), 0600))

	_, err := reg.Get()
	require.Error(t, err)

	_, err = reg.IsAlive()
	require.Error(t, err)
}

func TestProcessInspector_CurrentProcess(t *testing.T) {
	pi := NewProcessInspector()
	pid := pi.GetCurrentPID()

	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, pi.IsRunning(pid))
	assert.False(t, pi.IsRunning(0))

	name, err := pi.Name(pid)
	require.NoError(t, err)
	assert.NotEmpty(t, name)
}
