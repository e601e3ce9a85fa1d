// Package app assembles the tracker's components from configuration.
package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/chronos/internal/api"
	"github.com/eliteGoblin/focusd/chronos/internal/config"
	"github.com/eliteGoblin/focusd/chronos/internal/domain"
	"github.com/eliteGoblin/focusd/chronos/internal/infra"
	"github.com/eliteGoblin/focusd/chronos/internal/usecase"
)

// App holds the opened local components.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Clock     domain.Clock
	Store     *infra.SQLiteActivityStore
	Directory *infra.FileCategoryDirectory
	Stats     *usecase.StatsAggregator
	Service   *usecase.Service
	Processes *infra.ProcessInspectorImpl
	Registry  *infra.FileRegistry
	Backups   *infra.BackupManager
}

// Open opens the activity store and category directory described by cfg.
// With storage.encrypt set, the database key is created on first use.
func Open(cfg *config.Config, logger *zap.Logger) (*App, error) {
	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	var key []byte
	if cfg.Storage.Encrypt {
		var err error
		key, err = infra.EnsureKey(infra.NewKeyProvider(dataDir))
		if err != nil {
			return nil, fmt.Errorf("database key: %w", err)
		}
	}

	store, err := infra.OpenActivityStore(cfg.DBPath(), key, logger)
	if err != nil {
		return nil, err
	}

	clock := domain.SystemClock{}
	directory := infra.OpenCategoryDirectory(cfg.CategoriesPath(), logger)
	stats := usecase.NewStatsAggregator(store, directory, clock, logger)
	processes := infra.NewProcessInspector()

	return &App{
		Config:    cfg,
		Logger:    logger,
		Clock:     clock,
		Store:     store,
		Directory: directory,
		Stats:     stats,
		Service:   usecase.NewService(store, directory, stats, logger),
		Processes: processes,
		Registry:  infra.NewFileRegistry(dataDir, processes),
		Backups:   infra.NewBackupManager(cfg.BackupDir(), clock, logger),
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.Store.Close()
}

// RunningDaemon returns the registered daemon when its process is alive.
func RunningDaemon(cfg *config.Config) (*domain.DaemonInfo, error) {
	registry := infra.NewFileRegistry(cfg.DataDir(), infra.NewProcessInspector())
	alive, err := registry.IsAlive()
	if err != nil || !alive {
		return nil, err
	}
	return registry.Get()
}

// Connect returns the running daemon's API when it answers, so edits reach
// the daemon's in-memory category directory. Otherwise it opens the local
// files directly. The returned func releases whatever was opened.
func Connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (api.Backend, func() error, error) {
	info, err := RunningDaemon(cfg)
	if err != nil {
		logger.Warn("failed to read daemon registry", zap.Error(err))
	}
	if info != nil && info.APIAddr != "" {
		client := api.NewClient(info.APIAddr)
		if err := client.Ping(ctx); err == nil {
			return client, func() error { return nil }, nil
		}
		logger.Warn("daemon API unreachable, using local files", zap.String("addr", info.APIAddr))
	}

	a, err := Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a.Service, a.Close, nil
}
