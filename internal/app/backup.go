package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/chronos/internal/config"
	"github.com/eliteGoblin/focusd/chronos/internal/daemon"
	"github.com/eliteGoblin/focusd/chronos/internal/domain"
	"github.com/eliteGoblin/focusd/chronos/internal/infra"
)

// Backup snapshots the database and the category document, then prunes
// down to backup.keep. A keep of zero keeps every backup.
func (a *App) Backup(ctx context.Context, version string) (*infra.BackupManifest, error) {
	m, err := a.Backups.Create(ctx, infra.BackupSource{
		DB:        a.Store,
		DBName:    filepath.Base(a.Store.Path()),
		Encrypted: a.Store.Encrypted(),
		Extras:    []string{a.Directory.Path()},
		Version:   version,
	})
	if err != nil {
		return nil, err
	}

	if keep := a.Config.Backup.Keep; keep > 0 {
		removed, err := a.Backups.Prune(keep)
		if err != nil {
			a.Logger.Warn("failed to prune backups", zap.Error(err))
		} else if len(removed) > 0 {
			a.Logger.Info("pruned old backups", zap.Strings("ids", removed))
		}
	}
	return m, nil
}

// RestoreBackup copies backup id over the configured database and
// category document. It refuses while a tracker is running, since the
// daemon holds both open.
func RestoreBackup(cfg *config.Config, id string, logger *zap.Logger) error {
	info, err := RunningDaemon(cfg)
	if err != nil {
		return err
	}
	if info != nil {
		return fmt.Errorf("stop the tracker (pid %d) before restoring", info.PID)
	}

	manager := infra.NewBackupManager(cfg.BackupDir(), domain.SystemClock{}, logger)
	return manager.Restore(id, map[string]string{
		filepath.Base(cfg.DBPath()):         cfg.DBPath(),
		filepath.Base(cfg.CategoriesPath()): cfg.CategoriesPath(),
	})
}

// backupTarget adapts the app's backups to the daemon scheduler.
type backupTarget struct {
	app     *App
	version string
}

func (b *backupTarget) LastBackup() (time.Time, bool, error) {
	backups, err := b.app.Backups.List()
	if err != nil || len(backups) == 0 {
		return time.Time{}, false, err
	}
	return backups[0].CreatedAt, true, nil
}

func (b *backupTarget) Backup(ctx context.Context) error {
	_, err := b.app.Backup(ctx, b.version)
	return err
}

var _ daemon.BackupTarget = (*backupTarget)(nil)
