package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// BackupTarget takes backups and reports when the last one was taken.
type BackupTarget interface {
	// LastBackup returns the newest backup time; ok is false when none exist.
	LastBackup() (last time.Time, ok bool, err error)
	Backup(ctx context.Context) error
}

// BackupConfig holds backup scheduling configuration.
type BackupConfig struct {
	Interval      time.Duration // Minimum age of the newest backup before another is taken
	CheckInterval time.Duration // How often to check whether a backup is due
}

// DefaultBackupConfig returns default backup scheduling configuration.
func DefaultBackupConfig() BackupConfig {
	return BackupConfig{
		Interval:      24 * time.Hour,
		CheckInterval: time.Hour,
	}
}

// BackupScheduler takes a backup whenever the newest one is older than
// the interval. The check runs at start and then periodically, so a
// machine that sleeps through the interval catches up on wake.
type BackupScheduler struct {
	config  BackupConfig
	target  BackupTarget
	clock   domain.Clock
	metrics *Metrics
	logger  *zap.Logger
}

// NewBackupScheduler creates a backup loop.
func NewBackupScheduler(config BackupConfig, target BackupTarget, clock domain.Clock, metrics *Metrics, logger *zap.Logger) *BackupScheduler {
	return &BackupScheduler{
		config:  config,
		target:  target,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// Run checks immediately, then on every tick until ctx is canceled.
func (b *BackupScheduler) Run(ctx context.Context) error {
	b.logger.Info("backup scheduler started",
		zap.Duration("interval", b.config.Interval))

	b.check(ctx)

	ticker := time.NewTicker(b.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.check(ctx)
		}
	}
}

// check takes a backup if one is due and reports whether it tried.
func (b *BackupScheduler) check(ctx context.Context) bool {
	last, ok, err := b.target.LastBackup()
	if err != nil {
		b.logger.Warn("failed to list backups", zap.Error(err))
	}
	if ok && b.clock.Now().Sub(last) < b.config.Interval {
		return false
	}

	if err := b.target.Backup(ctx); err != nil {
		b.count("failed")
		b.logger.Error("scheduled backup failed", zap.Error(err))
		return true
	}
	b.count("ok")
	return true
}

func (b *BackupScheduler) count(result string) {
	if b.metrics != nil {
		b.metrics.Backups.WithLabelValues(result).Inc()
	}
}
