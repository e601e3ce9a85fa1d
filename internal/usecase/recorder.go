// Package usecase contains application business logic.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// RecorderImpl implements domain.Recorder.
type RecorderImpl struct {
	windows     domain.WindowProvider
	input       domain.InputProvider
	store       domain.ActivityStore
	idle        *IdleDetector
	clock       domain.Clock
	mergeWindow time.Duration
	logger      *zap.Logger
}

// NewRecorder creates an activity recorder. The idle detector starts at
// the clock's current time.
func NewRecorder(
	windows domain.WindowProvider,
	input domain.InputProvider,
	store domain.ActivityStore,
	clock domain.Clock,
	idleThreshold time.Duration,
	mergeWindow time.Duration,
	logger *zap.Logger,
) *RecorderImpl {
	return &RecorderImpl{
		windows:     windows,
		input:       input,
		store:       store,
		idle:        NewIdleDetector(idleThreshold, clock.Now()),
		clock:       clock,
		mergeWindow: mergeWindow,
		logger:      logger,
	}
}

// Tick samples the foreground window once and merges it into the store.
func (r *RecorderImpl) Tick(ctx context.Context) (*domain.TickResult, error) {
	now := r.clock.Now()

	win, err := r.windows.ActiveWindow()
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveWindow) {
			r.logger.Debug("no active window, skipping sample")
			return &domain.TickResult{Skipped: true}, nil
		}
		return nil, fmt.Errorf("reading active window: %w", err)
	}

	active := r.sampleInput(now)

	activity := domain.Activity{
		Title:       win.Title,
		Application: win.Application,
		StartTime:   now,
		EndTime:     now,
		IsBrowser:   false,
		URL:         nil,
		IsIdle:      !active,
	}

	res, err := r.store.MergeOrInsert(ctx, activity, r.mergeWindow)
	if err != nil {
		return nil, fmt.Errorf("recording activity: %w", err)
	}
	activity.ID = res.ID

	r.logger.Debug("sample recorded",
		zap.String("application", activity.Application),
		zap.String("title", activity.Title),
		zap.Bool("idle", activity.IsIdle),
		zap.Bool("merged", res.Merged))

	return &domain.TickResult{Activity: activity, Merged: res.Merged}, nil
}

func (r *RecorderImpl) sampleInput(now time.Time) bool {
	sig, err := r.input.Signature()
	if err != nil {
		r.logger.Debug("input probe failed, using elapsed time only", zap.Error(err))
		return r.idle.Check(now)
	}
	return r.idle.Sample(sig, now)
}

// Ensure RecorderImpl implements domain.Recorder.
var _ domain.Recorder = (*RecorderImpl)(nil)
