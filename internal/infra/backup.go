package infra

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

const (
	backupManifestFile = "manifest.json"
	backupIDLayout     = "20060102T150405Z"
)

// BackupFile is one file captured in a backup.
type BackupFile struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// BackupManifest describes a backup directory.
type BackupManifest struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Version   string       `json:"version"`
	Encrypted bool         `json:"encrypted"` // database needs the key it was created with
	Files     []BackupFile `json:"files"`
}

// BackupSource is what Create captures: a database snapshot plus plain
// files copied as-is. Missing extra files are skipped.
type BackupSource struct {
	DB        domain.Snapshotter
	DBName    string
	Encrypted bool
	Extras    []string
	Version   string
}

// BackupManager keeps timestamped copies of the tracker's data under one
// directory, each with a manifest of sha256 checksums.
type BackupManager struct {
	dir    string
	clock  domain.Clock
	logger *zap.Logger
}

// NewBackupManager creates a manager rooted at dir.
func NewBackupManager(dir string, clock domain.Clock, logger *zap.Logger) *BackupManager {
	return &BackupManager{
		dir:    dir,
		clock:  clock,
		logger: logger,
	}
}

// Dir returns the backup root.
func (bm *BackupManager) Dir() string {
	return bm.dir
}

// Create writes a new backup and returns its manifest.
func (bm *BackupManager) Create(ctx context.Context, src BackupSource) (*BackupManifest, error) {
	if src.DB == nil || src.DBName == "" {
		return nil, fmt.Errorf("%w: backup needs a database", domain.ErrInvalidInput)
	}

	now := bm.clock.Now()
	id := now.UTC().Format(backupIDLayout)
	path := filepath.Join(bm.dir, id)

	if err := os.MkdirAll(bm.dir, 0700); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	if err := os.Mkdir(path, 0700); err != nil {
		return nil, fmt.Errorf("create backup %s: %w", id, err)
	}

	// Remove the partial backup on any error
	success := false
	defer func() {
		if !success {
			os.RemoveAll(path)
		}
	}()

	names := []string{src.DBName}
	if err := src.DB.SnapshotTo(ctx, filepath.Join(path, src.DBName)); err != nil {
		return nil, fmt.Errorf("snapshot database: %w", err)
	}

	for _, extra := range src.Extras {
		name := filepath.Base(extra)
		if err := copyFile(extra, filepath.Join(path, name)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				bm.logger.Debug("backup source missing, skipping", zap.String("path", extra))
				continue
			}
			return nil, fmt.Errorf("copy %s: %w", extra, err)
		}
		names = append(names, name)
	}

	manifest := &BackupManifest{
		ID:        id,
		CreatedAt: now,
		Version:   src.Version,
		Encrypted: src.Encrypted,
	}
	for _, name := range names {
		file, err := describeFile(filepath.Join(path, name))
		if err != nil {
			return nil, err
		}
		manifest.Files = append(manifest.Files, file)
	}

	if err := writeManifest(path, manifest); err != nil {
		return nil, err
	}

	success = true
	bm.logger.Info("backup created",
		zap.String("id", id),
		zap.Int("files", len(manifest.Files)))
	return manifest, nil
}

// List returns every readable backup, newest first.
func (bm *BackupManager) List() ([]BackupManifest, error) {
	entries, err := os.ReadDir(bm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []BackupManifest{}, nil
		}
		return nil, err
	}

	backups := []BackupManifest{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m, err := readManifest(filepath.Join(bm.dir, e.Name()))
		if err != nil {
			bm.logger.Warn("skipping unreadable backup",
				zap.String("id", e.Name()),
				zap.Error(err))
			continue
		}
		backups = append(backups, *m)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Get returns the manifest of backup id.
func (bm *BackupManager) Get(id string) (*BackupManifest, error) {
	if id == "" || filepath.Base(id) != id {
		return nil, fmt.Errorf("%w: %q", domain.ErrBackupNotFound, id)
	}
	m, err := readManifest(filepath.Join(bm.dir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", domain.ErrBackupNotFound, id)
		}
		return nil, err
	}
	return m, nil
}

// Verify recomputes every checksum of backup id.
func (bm *BackupManager) Verify(id string) error {
	m, err := bm.Get(id)
	if err != nil {
		return err
	}
	for _, f := range m.Files {
		sum, err := computeSHA256(filepath.Join(bm.dir, id, f.Name))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrBackupCorrupt, f.Name, err)
		}
		if sum != f.SHA256 {
			return fmt.Errorf("%w: %s checksum mismatch", domain.ErrBackupCorrupt, f.Name)
		}
	}
	return nil
}

// Restore verifies backup id and copies each file to targets[name].
// Files without a target are left alone. The caller must make sure no
// tracker has the database open.
func (bm *BackupManager) Restore(id string, targets map[string]string) error {
	if err := bm.Verify(id); err != nil {
		return err
	}
	m, err := bm.Get(id)
	if err != nil {
		return err
	}

	for _, f := range m.Files {
		dst, ok := targets[f.Name]
		if !ok {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
			return err
		}
		if err := copyFile(filepath.Join(bm.dir, id, f.Name), dst); err != nil {
			return fmt.Errorf("restore %s: %w", f.Name, err)
		}
		// Stale WAL files would be replayed over the restored database
		os.Remove(dst + "-wal")
		os.Remove(dst + "-shm")

		bm.logger.Info("restored from backup",
			zap.String("id", id),
			zap.String("file", f.Name),
			zap.String("path", dst))
	}
	return nil
}

// Prune deletes all but the newest keep backups and returns the removed ids.
func (bm *BackupManager) Prune(keep int) ([]string, error) {
	if keep < 0 {
		return nil, fmt.Errorf("%w: keep must not be negative", domain.ErrInvalidInput)
	}
	backups, err := bm.List()
	if err != nil {
		return nil, err
	}

	var removed []string
	for i := keep; i < len(backups); i++ {
		id := backups[i].ID
		if err := os.RemoveAll(filepath.Join(bm.dir, id)); err != nil {
			return removed, fmt.Errorf("remove backup %s: %w", id, err)
		}
		removed = append(removed, id)
	}
	return removed, nil
}

func describeFile(path string) (BackupFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return BackupFile{}, err
	}
	sum, err := computeSHA256(path)
	if err != nil {
		return BackupFile{}, fmt.Errorf("checksum %s: %w", path, err)
	}
	return BackupFile{
		Name:   filepath.Base(path),
		SHA256: sum,
		Size:   info.Size(),
	}, nil
}

func readManifest(dir string) (*BackupManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, backupManifestFile))
	if err != nil {
		return nil, err
	}
	var m BackupManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

func writeManifest(dir string, m *BackupManifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, backupManifestFile)
	tmpPath := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// computeSHA256 calculates SHA256 hash of a file
func computeSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// copyFile copies src to dst through a synced temp file and a rename.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".chronos-copy-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err = io.Copy(tmpFile, sourceFile); err != nil {
		tmpFile.Close()
		return err
	}
	if err = tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return err
	}
	if err = tmpFile.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpPath, 0600); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, dst); err != nil {
		return err
	}

	success = true
	return nil
}
