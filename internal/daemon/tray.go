package daemon

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// TrayConfig holds tray refresh configuration.
type TrayConfig struct {
	RefreshInterval time.Duration // How often to recompute today's summary
}

// DefaultTrayConfig returns default tray configuration.
func DefaultTrayConfig() TrayConfig {
	return TrayConfig{
		RefreshInterval: time.Minute,
	}
}

// SummarySource computes today's summary.
type SummarySource interface {
	TodaySummary(ctx context.Context) (domain.TodaySummary, error)
}

// TrayRefresher recomputes today's summary on a timer or on demand and
// hands it to every publisher.
type TrayRefresher struct {
	config     TrayConfig
	source     SummarySource
	publishers []domain.SummaryPublisher
	metrics    *Metrics
	logger     *zap.Logger

	trigger chan struct{}

	mu   sync.RWMutex
	last *domain.TodaySummary
}

// NewTrayRefresher creates a refresher. metrics may be nil.
func NewTrayRefresher(
	config TrayConfig,
	source SummarySource,
	metrics *Metrics,
	logger *zap.Logger,
	publishers ...domain.SummaryPublisher,
) *TrayRefresher {
	return &TrayRefresher{
		config:     config,
		source:     source,
		publishers: publishers,
		metrics:    metrics,
		logger:     logger,
		trigger:    make(chan struct{}, 1),
	}
}

// Trigger requests an immediate refresh. Requests made while one is
// already pending collapse into it.
func (t *TrayRefresher) Trigger() {
	select {
	case t.trigger <- struct{}{}:
	default:
	}
}

// Last returns the most recent summary, nil before the first refresh.
func (t *TrayRefresher) Last() *domain.TodaySummary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.last == nil {
		return nil
	}
	s := *t.last
	return &s
}

// Run refreshes immediately, then on every tick or trigger until ctx is canceled.
func (t *TrayRefresher) Run(ctx context.Context) error {
	t.logger.Info("tray refresher started",
		zap.Duration("interval", t.config.RefreshInterval))

	t.Refresh(ctx)

	ticker := time.NewTicker(t.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("tray refresher stopping")
			return ctx.Err()

		case <-ticker.C:
			t.Refresh(ctx)

		case <-t.trigger:
			t.Refresh(ctx)
		}
	}
}

// Refresh computes and publishes one summary. A failed computation keeps
// the previous summary in place.
func (t *TrayRefresher) Refresh(ctx context.Context) {
	summary, err := t.source.TodaySummary(ctx)
	if err != nil {
		t.countRefresh(resultFailed)
		t.logger.Warn("failed to compute today summary", zap.Error(err))
		return
	}

	t.mu.Lock()
	t.last = &summary
	t.mu.Unlock()

	t.countRefresh("ok")
	if t.metrics != nil {
		t.metrics.GoalPercent.Set(float64(summary.GoalPercentage))
	}

	t.logger.Debug("today summary refreshed",
		zap.String("title", summary.Title),
		zap.Int64("tracked_seconds", summary.TrackedSeconds))

	for _, p := range t.publishers {
		p.Publish(summary)
	}
}

func (t *TrayRefresher) countRefresh(result string) {
	if t.metrics != nil {
		t.metrics.TrayRefreshes.WithLabelValues(result).Inc()
	}
}
