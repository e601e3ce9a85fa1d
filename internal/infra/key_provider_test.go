package infra

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileKeyProvider(t *testing.T) {
	tests := []struct {
		name   string
		testFn func(t *testing.T, provider *FileKeyProvider)
	}{
		{
			name: "no key file yet",
			testFn: func(t *testing.T, provider *FileKeyProvider) {
				assert.False(t, provider.KeyExists())
				_, err := provider.GetKey()
				assert.Error(t, err)
			},
		},
		{
			name: "stored key round-trips as hex with 0600 permissions",
			testFn: func(t *testing.T, provider *FileKeyProvider) {
				key, err := GenerateKey()
				require.NoError(t, err)
				require.NoError(t, provider.StoreKey(key))

				info, err := os.Stat(provider.Path())
				require.NoError(t, err)
				assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
				assert.Equal(t, keyFileName, filepath.Base(provider.Path()))

				data, err := os.ReadFile(provider.Path())
				require.NoError(t, err)
				assert.Equal(t, hex.EncodeToString(key), strings.TrimSpace(string(data)))

				got, err := provider.GetKey()
				require.NoError(t, err)
				assert.Equal(t, key, got)
			},
		},
		{
			name: "existing key is never replaced",
			testFn: func(t *testing.T, provider *FileKeyProvider) {
				first, err := GenerateKey()
				require.NoError(t, err)
				require.NoError(t, provider.StoreKey(first))

				second, err := GenerateKey()
				require.NoError(t, err)
				err = provider.StoreKey(second)
				assert.ErrorIs(t, err, os.ErrExist)

				got, err := provider.GetKey()
				require.NoError(t, err)
				assert.Equal(t, first, got)

				entries, err := os.ReadDir(filepath.Dir(provider.Path()))
				require.NoError(t, err)
				assert.Len(t, entries, 1, "temp files cleaned up")
			},
		},
		{
			name: "wrong key size rejected",
			testFn: func(t *testing.T, provider *FileKeyProvider) {
				err := provider.StoreKey([]byte("tooshort"))
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid key size")
				assert.False(t, provider.KeyExists())
			},
		},
		{
			name: "corrupt key file",
			testFn: func(t *testing.T, provider *FileKeyProvider) {
				require.NoError(t, os.WriteFile(provider.Path(), []byte("not-hex"), 0600))
				_, err := provider.GetKey()
				require.Error(t, err)
				assert.Contains(t, err.Error(), "decode key")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFn(t, NewFileKeyProvider(t.TempDir()))
		})
	}
}

func TestStoreKey_CreatesDataDir(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested", "chronos")
	provider := NewFileKeyProvider(dataDir)

	key, err := GenerateKey()
	require.NoError(t, err)
	require.NoError(t, provider.StoreKey(key))

	info, err := os.Stat(dataDir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestNewKeyProvider_PrefersEnvironment(t *testing.T) {
	dataDir := t.TempDir()

	t.Setenv(KeyEnvVar, "")
	_, ok := NewKeyProvider(dataDir).(*FileKeyProvider)
	assert.True(t, ok, "key file without the variable")

	key, err := GenerateKey()
	require.NoError(t, err)
	t.Setenv(KeyEnvVar, hex.EncodeToString(key))

	provider := NewKeyProvider(dataDir)
	require.IsType(t, &EnvKeyProvider{}, provider)
	assert.True(t, provider.KeyExists())

	got, err := EnsureKey(provider)
	require.NoError(t, err)
	assert.Equal(t, key, got)
	assert.Error(t, provider.StoreKey(key))
	assert.NoFileExists(t, filepath.Join(dataDir, keyFileName))
}

func TestEnvKeyProvider_RejectsBadValue(t *testing.T) {
	_, err := (&EnvKeyProvider{value: "abcd"}).GetKey()
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyEnvVar)
	assert.Contains(t, err.Error(), "invalid key size")
}

func TestGenerateKey_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := GenerateKey()
		require.NoError(t, err)
		assert.Len(t, key, keySize)
		assert.False(t, seen[string(key)], "duplicate key generated")
		seen[string(key)] = true
	}
}

func TestEnsureKey(t *testing.T) {
	dataDir := t.TempDir()
	provider := NewFileKeyProvider(dataDir)

	first, err := EnsureKey(provider)
	require.NoError(t, err)
	assert.Len(t, first, keySize)
	assert.True(t, provider.KeyExists())

	second, err := EnsureKey(provider)
	require.NoError(t, err)
	assert.Equal(t, first, second, "existing key is reused")

	// The ensured key opens the same encrypted database twice.
	dbPath := filepath.Join(dataDir, "chronos.db")
	s, err := OpenActivityStore(dbPath, first, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenActivityStore(dbPath, second, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestEnsureKey_ConcurrentFirstUse(t *testing.T) {
	dataDir := t.TempDir()

	const workers = 8
	keys := make([][]byte, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			keys[i], errs[i] = EnsureKey(NewFileKeyProvider(dataDir))
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, keys[0], keys[i], "worker %d", i)
	}
}
