// Package daemon implements the background tasks of the tracker process.
package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// SamplerConfig holds sampling loop configuration.
type SamplerConfig struct {
	SampleInterval    time.Duration // How often to sample the foreground window
	HeartbeatInterval time.Duration // How often to update the registry heartbeat
}

// DefaultSamplerConfig returns default sampler configuration.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		SampleInterval:    15 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}

// Sampler drives the recorder on a fixed period.
// Ticks run on a single goroutine, so they never overlap.
type Sampler struct {
	config   SamplerConfig
	recorder domain.Recorder
	registry domain.DaemonRegistry // optional
	info     domain.DaemonInfo
	metrics  *Metrics
	logger   *zap.Logger
}

// NewSampler creates a sampling loop. registry may be nil when the
// loop runs outside a daemon (tests, foreground runs without status).
func NewSampler(
	config SamplerConfig,
	recorder domain.Recorder,
	registry domain.DaemonRegistry,
	info domain.DaemonInfo,
	metrics *Metrics,
	logger *zap.Logger,
) *Sampler {
	return &Sampler{
		config:   config,
		recorder: recorder,
		registry: registry,
		info:     info,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run samples immediately, then on every tick until ctx is canceled.
func (s *Sampler) Run(ctx context.Context) error {
	if s.registry != nil {
		if err := s.registry.Register(s.info); err != nil {
			s.logger.Error("failed to register daemon", zap.Error(err))
			return err
		}
		defer func() {
			if err := s.registry.Clear(); err != nil {
				s.logger.Warn("failed to clear registry", zap.Error(err))
			}
		}()
	}

	s.logger.Info("sampler started",
		zap.Int("pid", s.info.PID),
		zap.Duration("interval", s.config.SampleInterval))

	s.tick(ctx)

	sampleTicker := time.NewTicker(s.config.SampleInterval)
	heartbeatTicker := time.NewTicker(s.config.HeartbeatInterval)

	defer func() {
		sampleTicker.Stop()
		heartbeatTicker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sampler stopping")
			return ctx.Err()

		case <-sampleTicker.C:
			s.tick(ctx)

		case <-heartbeatTicker.C:
			if s.registry == nil {
				continue
			}
			if err := s.registry.UpdateHeartbeat(); err != nil {
				s.logger.Warn("failed to update heartbeat", zap.Error(err))
			}
		}
	}
}

// tick runs one sample. Failures are logged and never retried; the next
// tick proceeds on schedule.
func (s *Sampler) tick(ctx context.Context) {
	result, err := s.recorder.Tick(ctx)
	if err != nil {
		s.count(resultFailed)
		s.logger.Warn("sample failed", zap.Error(err))
		return
	}

	switch {
	case result.Skipped:
		s.count(resultSkipped)
		return
	case result.Merged:
		s.count(resultMerged)
	default:
		s.count(resultInserted)
		s.logger.Debug("new activity interval",
			zap.String("application", result.Activity.Application),
			zap.Bool("idle", result.Activity.IsIdle))
	}

	if result.Activity.IsIdle && s.metrics != nil {
		s.metrics.IdleSamples.Inc()
	}
}

func (s *Sampler) count(result string) {
	if s.metrics != nil {
		s.metrics.Samples.WithLabelValues(result).Inc()
	}
}
