package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// TopApplicationsLimit caps Stats.TopApplications.
const TopApplicationsLimit = 5

const progressBarCells = 10

// StatsAggregator turns stored intervals into productivity statistics.
type StatsAggregator struct {
	store     domain.ActivityStore
	directory domain.CategoryDirectory
	clock     domain.Clock
	logger    *zap.Logger
}

// NewStatsAggregator creates a stats aggregator.
func NewStatsAggregator(
	store domain.ActivityStore,
	directory domain.CategoryDirectory,
	clock domain.Clock,
	logger *zap.Logger,
) *StatsAggregator {
	return &StatsAggregator{
		store:     store,
		directory: directory,
		clock:     clock,
		logger:    logger,
	}
}

// StatsForRange aggregates every interval contained in [start, end].
func (a *StatsAggregator) StatsForRange(ctx context.Context, start, end time.Time) (*domain.Stats, error) {
	activities, err := a.store.Between(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}

	// Taken after the store call returns; the two locks are never held together.
	snap, err := a.directory.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading categories: %w", err)
	}

	stats := Aggregate(activities, snap)
	stats.Start = start
	stats.End = end

	a.logger.Debug("stats computed",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("activities", len(activities)),
		zap.Int64("total_time", stats.TotalTime),
		zap.Int64("productive_time", stats.ProductiveTime),
		zap.Int64("goal_percentage", stats.GoalPercentage))

	return stats, nil
}

// Aggregate computes stats for activities using the categories and goal in snap.
func Aggregate(activities []domain.Activity, snap domain.CategorySnapshot) *domain.Stats {
	var order []string
	byApp := make(map[string]*domain.AppStats)

	for _, act := range activities {
		app, ok := byApp[act.Application]
		if !ok {
			app = &domain.AppStats{
				Application: act.Application,
				Category:    snap.Lookup(act.Application),
				Activities:  []domain.Activity{},
			}
			byApp[act.Application] = app
			order = append(order, act.Application)
		}

		secs := act.DurationSeconds()
		app.TotalDuration += secs
		if act.IsIdle {
			app.IdleDuration += secs
		}
		app.Activities = append(app.Activities, act)
	}

	stats := &domain.Stats{
		DailyGoalMinutes: snap.DailyGoalMinutes,
		Activities:       activities,
	}
	if stats.Activities == nil {
		stats.Activities = []domain.Activity{}
	}

	apps := make([]domain.AppStats, 0, len(order))
	for _, name := range order {
		app := byApp[name]
		stats.TotalTime += app.TotalDuration
		stats.IdleTime += app.IdleDuration
		if app.Category != nil && app.Category.IsProductive {
			stats.ProductiveTime += app.TotalDuration - app.IdleDuration
		}
		apps = append(apps, *app)
	}

	stats.ProductiveMinutes = stats.ProductiveTime / 60
	stats.GoalPercentage = GoalPercentage(stats.ProductiveMinutes, snap.DailyGoalMinutes)

	sort.SliceStable(apps, func(i, j int) bool {
		return apps[i].TotalDuration > apps[j].TotalDuration
	})
	if len(apps) > TopApplicationsLimit {
		apps = apps[:TopApplicationsLimit]
	}
	stats.TopApplications = apps

	return stats
}

// GoalPercentage returns round(productive/goal*100), or 0 without a positive goal.
func GoalPercentage(productiveMinutes, goalMinutes int64) int64 {
	if goalMinutes <= 0 {
		return 0
	}
	return int64(math.Round(float64(productiveMinutes) / float64(goalMinutes) * 100))
}

// DailyStats aggregates the calendar day containing date.
func (a *StatsAggregator) DailyStats(ctx context.Context, date time.Time) (*domain.Stats, error) {
	start, end := DailyRange(date)
	return a.StatsForRange(ctx, start, end)
}

// WeeklyStats aggregates the Monday-based week containing date.
func (a *StatsAggregator) WeeklyStats(ctx context.Context, date time.Time) (*domain.Stats, error) {
	start, end := WeeklyRange(date)
	return a.StatsForRange(ctx, start, end)
}

// MonthlyStats aggregates the calendar month containing date.
func (a *StatsAggregator) MonthlyStats(ctx context.Context, date time.Time) (*domain.Stats, error) {
	start, end := MonthlyRange(date)
	return a.StatsForRange(ctx, start, end)
}

// TodaySummary renders today's stats for the tray and dashboard.
func (a *StatsAggregator) TodaySummary(ctx context.Context) (domain.TodaySummary, error) {
	now := a.clock.Now()
	stats, err := a.DailyStats(ctx, now)
	if err != nil {
		return domain.TodaySummary{}, err
	}
	return Summarize(stats, now), nil
}

// Summarize builds the tray labels from daily stats.
func Summarize(stats *domain.Stats, at time.Time) domain.TodaySummary {
	trackedMinutes := stats.TotalTime / 60
	pct := GoalPercentage(stats.ProductiveMinutes, stats.DailyGoalMinutes)

	return domain.TodaySummary{
		TrackedSeconds:    stats.TotalTime,
		ProductiveSeconds: stats.ProductiveTime,
		GoalPercentage:    pct,
		Title:             fmt.Sprintf("%d%%", pct),
		TrackedLabel:      "Tracked: " + FormatDuration(trackedMinutes*60),
		ProductiveLabel:   fmt.Sprintf("Productive: %s (%d%%)", FormatDuration(stats.ProductiveMinutes*60), pct),
		ProgressBar:       ProgressBar(pct),
		UpdatedAt:         at,
	}
}

// DailyRange returns [00:00:00, 23:59:59] of date's day in date's location.
func DailyRange(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	loc := date.Location()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), time.Date(y, m, d, 23, 59, 59, 0, loc)
}

// WeeklyRange returns Monday 00:00 of date's week through the following Sunday.
func WeeklyRange(date time.Time) (time.Time, time.Time) {
	day, _ := DailyRange(date)
	offset := (int(date.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7).Add(-time.Nanosecond)
}

// MonthlyRange returns the first instant of date's month through its last nanosecond.
func MonthlyRange(date time.Time) (time.Time, time.Time) {
	loc := date.Location()
	start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, loc)

	next := start.AddDate(0, 0, 32)
	end := time.Date(next.Year(), next.Month(), 1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
	if !end.After(start) {
		end = start.AddDate(0, 0, 30)
	}
	return start, end
}

// FormatDuration renders seconds as "2h 5m" or "45m".
func FormatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// ProgressBar renders a ten-cell goal bar such as "▰▰▱▱▱▱▱▱▱▱ 20%".
func ProgressBar(pct int64) string {
	filled := int(math.Round(float64(pct) / 100 * progressBarCells))
	if filled < 0 {
		filled = 0
	}
	if filled > progressBarCells {
		filled = progressBarCells
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", progressBarCells-filled) + fmt.Sprintf(" %d%%", pct)
}
