package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eliteGoblin/focusd/chronos/internal/api"
	"github.com/eliteGoblin/focusd/chronos/internal/daemon"
	"github.com/eliteGoblin/focusd/chronos/internal/domain"
	"github.com/eliteGoblin/focusd/chronos/internal/infra/platform"
	"github.com/eliteGoblin/focusd/chronos/internal/usecase"
)

// Tasks are the long-running parts of the tracker.
type Tasks struct {
	Sampler *daemon.Sampler
	Tray    *daemon.TrayRefresher
	Server  *api.Server // nil when the API is disabled
	Hub     *api.Hub
	Backup  *daemon.BackupScheduler // nil when scheduled backups are off
}

// BuildTasks wires the sampler, tray refresher and API server around the
// opened components. windows and input are the platform probes.
func (a *App) BuildTasks(
	windows domain.WindowProvider,
	input domain.InputProvider,
	reg *prometheus.Registry,
	version string,
) *Tasks {
	cfg := a.Config
	metrics := daemon.NewMetrics(reg)

	recorder := usecase.NewRecorder(windows, input, a.Store, a.Clock,
		cfg.Tracking.IdleThreshold, cfg.Tracking.MergeWindow, a.Logger)

	hub := api.NewHub(a.Logger)
	tray := daemon.NewTrayRefresher(
		daemon.TrayConfig{RefreshInterval: cfg.Tray.RefreshInterval},
		a.Service, metrics, a.Logger, hub)
	a.Service.OnChange(tray.Trigger)

	info := domain.DaemonInfo{
		PID:       os.Getpid(),
		StartedAt: time.Now(),
		Version:   version,
	}

	tasks := &Tasks{Tray: tray, Hub: hub}
	if cfg.API.Enabled {
		info.APIAddr = cfg.API.Addr
		tasks.Server = api.NewServer(api.ServerConfig{
			Addr:            cfg.API.Addr,
			Version:         version,
			ShutdownTimeout: api.DefaultServerConfig().ShutdownTimeout,
		}, a.Service, hub, reg, a.Clock, a.Logger)
	}

	if interval := cfg.Backup.Interval; interval > 0 {
		backupCfg := daemon.DefaultBackupConfig()
		backupCfg.Interval = interval
		if interval < backupCfg.CheckInterval {
			backupCfg.CheckInterval = interval
		}
		tasks.Backup = daemon.NewBackupScheduler(backupCfg,
			&backupTarget{app: a, version: version}, a.Clock, metrics, a.Logger)
	}

	tasks.Sampler = daemon.NewSampler(daemon.SamplerConfig{
		SampleInterval:    cfg.Tracking.SampleInterval,
		HeartbeatInterval: cfg.Tracking.HeartbeatInterval,
	}, recorder, a.Registry, info, metrics, a.Logger)

	return tasks
}

// Run runs every task until ctx is canceled or one of them fails.
func (t *Tasks) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return t.Sampler.Run(gctx) })
	g.Go(func() error { return t.Tray.Run(gctx) })
	if t.Server != nil {
		g.Go(func() error { return t.Server.Run(gctx) })
	}
	if t.Backup != nil {
		g.Go(func() error { return t.Backup.Run(gctx) })
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// RunDaemon runs the tracker in the foreground with the desktop probes.
// It refuses to start when another live tracker is registered.
func (a *App) RunDaemon(ctx context.Context, version string) error {
	info, err := a.Registry.Get()
	if err != nil {
		a.Logger.Warn("unreadable daemon registry, replacing it", zap.Error(err))
	} else if info != nil && info.PID != os.Getpid() && a.Processes.IsRunning(info.PID) {
		return fmt.Errorf("tracker already running (pid %d)", info.PID)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	probe := platform.NewProbe(a.Processes)
	tasks := a.BuildTasks(probe, probe, reg, version)

	a.Logger.Info("tracker starting",
		zap.String("version", version),
		zap.String("db", a.Store.Path()),
		zap.Bool("encrypted", a.Config.Storage.Encrypt),
		zap.Bool("api", a.Config.API.Enabled))

	return tasks.Run(ctx)
}
