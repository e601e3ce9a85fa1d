package infra

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

const (
	keyFileName = ".dbkey"
	keySize     = 32 // 256-bit SQLCipher raw key

	// KeyEnvVar supplies the database key as 64 hex characters,
	// taking precedence over the key file.
	KeyEnvVar = "CHRONOS_DB_KEY"
)

// NewKeyProvider returns the key source for dataDir: the environment
// when KeyEnvVar is set, otherwise the key file.
func NewKeyProvider(dataDir string) domain.KeyProvider {
	if v := os.Getenv(KeyEnvVar); v != "" {
		return &EnvKeyProvider{value: v}
	}
	return NewFileKeyProvider(dataDir)
}

// FileKeyProvider keeps the database key hex-encoded in a 0600 file in
// the data directory. The file is written once and never replaced.
type FileKeyProvider struct {
	keyPath string
}

// NewFileKeyProvider creates a FileKeyProvider for the given data directory.
func NewFileKeyProvider(dataDir string) *FileKeyProvider {
	return &FileKeyProvider{
		keyPath: filepath.Join(dataDir, keyFileName),
	}
}

// Path returns the key file location.
func (p *FileKeyProvider) Path() string {
	return p.keyPath
}

func (p *FileKeyProvider) GetKey() ([]byte, error) {
	data, err := os.ReadFile(p.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return decodeKey(string(data))
}

// StoreKey publishes key with a hard link from a complete temp file, so
// a concurrent reader never sees a partial key. It fails with an error
// matching os.ErrExist when a key file is already present.
func (p *FileKeyProvider) StoreKey(key []byte) error {
	if len(key) != keySize {
		return fmt.Errorf("invalid key size: got %d, want %d", len(key), keySize)
	}
	dir := filepath.Dir(p.keyPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".dbkey-*")
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(hex.EncodeToString(key) + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}

	if err := os.Link(tmpPath, p.keyPath); err != nil {
		return fmt.Errorf("failed to publish key file: %w", err)
	}
	return nil
}

func (p *FileKeyProvider) KeyExists() bool {
	_, err := os.Stat(p.keyPath)
	return err == nil
}

// EnvKeyProvider reads the key from KeyEnvVar. It cannot store keys.
type EnvKeyProvider struct {
	value string
}

func (p *EnvKeyProvider) GetKey() ([]byte, error) {
	key, err := decodeKey(p.value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyEnvVar, err)
	}
	return key, nil
}

func (p *EnvKeyProvider) StoreKey([]byte) error {
	return fmt.Errorf("database key comes from %s and cannot be replaced", KeyEnvVar)
}

func (p *EnvKeyProvider) KeyExists() bool {
	return p.value != ""
}

func decodeKey(raw string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key), keySize)
	}
	return key, nil
}

// GenerateKey creates a new random 256-bit key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}
	return key, nil
}

// EnsureKey returns the stored key, generating and storing one on first
// use. When the CLI and the daemon race on first run, the loser reads
// back the winner's key.
func EnsureKey(provider domain.KeyProvider) ([]byte, error) {
	if provider.KeyExists() {
		return provider.GetKey()
	}
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := provider.StoreKey(key); err != nil {
		if errors.Is(err, os.ErrExist) {
			return provider.GetKey()
		}
		return nil, err
	}
	return key, nil
}

var (
	_ domain.KeyProvider = (*FileKeyProvider)(nil)
	_ domain.KeyProvider = (*EnvKeyProvider)(nil)
)
