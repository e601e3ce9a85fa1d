package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// Service lists every operation a UI shell can invoke.
// The API, CLI and dashboard are thin clients of it.
type Service struct {
	store     domain.ActivityStore
	directory domain.CategoryDirectory
	stats     *StatsAggregator
	onChange  func()
	logger    *zap.Logger
}

// NewService creates the service.
func NewService(
	store domain.ActivityStore,
	directory domain.CategoryDirectory,
	stats *StatsAggregator,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:     store,
		directory: directory,
		stats:     stats,
		logger:    logger,
	}
}

// OnChange registers a hook called after any mutation that affects stats.
func (s *Service) OnChange(fn func()) {
	s.onChange = fn
}

func (s *Service) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Activities returns intervals contained in [start, end], newest first.
func (s *Service) Activities(ctx context.Context, start, end time.Time) ([]domain.Activity, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s is before start %s", domain.ErrInvalidInput,
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return s.store.Between(ctx, start, end)
}

// ActivitiesForDay returns intervals starting on date's day, newest first.
func (s *Service) ActivitiesForDay(ctx context.Context, date time.Time) ([]domain.Activity, error) {
	return s.store.ForDay(ctx, date)
}

// DailyStats aggregates the local day containing date.
func (s *Service) DailyStats(ctx context.Context, date time.Time) (*domain.Stats, error) {
	return s.stats.DailyStats(ctx, date)
}

// WeeklyStats aggregates the Monday-based week containing date.
func (s *Service) WeeklyStats(ctx context.Context, date time.Time) (*domain.Stats, error) {
	return s.stats.WeeklyStats(ctx, date)
}

// MonthlyStats aggregates the calendar month containing date.
func (s *Service) MonthlyStats(ctx context.Context, date time.Time) (*domain.Stats, error) {
	return s.stats.MonthlyStats(ctx, date)
}

// RangeStats aggregates an arbitrary range.
func (s *Service) RangeStats(ctx context.Context, start, end time.Time) (*domain.Stats, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end is before start", domain.ErrInvalidInput)
	}
	return s.stats.StatsForRange(ctx, start, end)
}

// TodaySummary returns the tray-facing numbers for today.
func (s *Service) TodaySummary(ctx context.Context) (domain.TodaySummary, error) {
	return s.stats.TodaySummary(ctx)
}

// DailyGoal returns the goal in minutes, 0 when unset.
func (s *Service) DailyGoal(ctx context.Context) (int64, error) {
	return s.directory.DailyGoal(ctx)
}

// SetDailyGoal stores the goal in minutes. Negative values are rejected.
func (s *Service) SetDailyGoal(ctx context.Context, minutes int64) error {
	if minutes < 0 {
		return fmt.Errorf("%w: daily goal must not be negative, got %d", domain.ErrInvalidInput, minutes)
	}
	if err := s.directory.SetDailyGoal(ctx, minutes); err != nil {
		return err
	}
	s.logger.Info("daily goal updated", zap.Int64("minutes", minutes))
	s.changed()
	return nil
}

// Categories lists every category.
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.directory.Categories(ctx)
}

// AddCategory creates a category and notifies listeners.
func (s *Service) AddCategory(ctx context.Context, name, color string, productive bool) (domain.Category, error) {
	cat, err := s.directory.AddCategory(ctx, name, color, productive)
	if err != nil {
		return domain.Category{}, err
	}
	s.logger.Info("category added", zap.String("id", cat.ID), zap.String("name", cat.Name))
	s.changed()
	return cat, nil
}

// UpdateCategory replaces the category with the same ID.
func (s *Service) UpdateCategory(ctx context.Context, category domain.Category) error {
	if err := s.directory.UpdateCategory(ctx, category); err != nil {
		return err
	}
	s.logger.Info("category updated", zap.String("id", category.ID))
	s.changed()
	return nil
}

// DeleteCategory removes a category along with its app mappings.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.directory.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.logger.Info("category deleted", zap.String("id", id))
	s.changed()
	return nil
}

// AppCategories lists the app to category mappings.
func (s *Service) AppCategories(ctx context.Context) ([]domain.AppCategory, error) {
	return s.directory.AppCategories(ctx)
}

// SetAppCategory maps app to an existing category.
func (s *Service) SetAppCategory(ctx context.Context, app, categoryID string) error {
	if strings.TrimSpace(app) == "" {
		return fmt.Errorf("%w: app name is required", domain.ErrInvalidInput)
	}
	if err := s.directory.SetAppCategory(ctx, app, categoryID); err != nil {
		return err
	}
	s.logger.Info("app category set", zap.String("app", app), zap.String("category_id", categoryID))
	s.changed()
	return nil
}

// UncategorizedApps lists recorded applications that have no mapping.
func (s *Service) UncategorizedApps(ctx context.Context) ([]string, error) {
	apps, err := s.store.DistinctApplications(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}

	mappings, err := s.directory.AppCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing app categories: %w", err)
	}
	mapped := make(map[string]struct{}, len(mappings))
	for _, m := range mappings {
		mapped[m.AppName] = struct{}{}
	}

	result := make([]string, 0)
	for _, app := range apps {
		if _, ok := mapped[app]; !ok {
			result = append(result, app)
		}
	}
	sort.Strings(result)
	return result, nil
}
