package usecase

import (
	"time"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// IdleDetector classifies input samples as active or idle.
// It is driven by a single sampler goroutine and is not safe for concurrent use.
type IdleDetector struct {
	threshold     time.Duration
	lastActivity  time.Time
	lastSignature domain.InputSignature
}

// NewIdleDetector creates a detector whose first sample is always active.
func NewIdleDetector(threshold time.Duration, now time.Time) *IdleDetector {
	return &IdleDetector{
		threshold:    threshold,
		lastActivity: now,
	}
}

// Sample records sig and reports whether the user is active at now.
func (d *IdleDetector) Sample(sig domain.InputSignature, now time.Time) bool {
	if !sig.Equal(d.lastSignature) {
		d.lastActivity = now
		d.lastSignature = sig
		return true
	}
	return d.Check(now)
}

// Check reports activity without a new input observation.
func (d *IdleDetector) Check(now time.Time) bool {
	return now.Sub(d.lastActivity) < d.threshold
}

// Threshold returns the configured idle threshold.
func (d *IdleDetector) Threshold() time.Duration {
	return d.threshold
}
