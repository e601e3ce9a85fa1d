// Package api exposes the tracker service over HTTP/JSON and websocket.
package api

import (
	"context"
	"time"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
	"github.com/eliteGoblin/focusd/chronos/internal/usecase"
)

// Backend is the operation set served by the API. The in-process service
// and the HTTP Client both implement it, so the CLI can talk to either.
type Backend interface {
	Activities(ctx context.Context, start, end time.Time) ([]domain.Activity, error)
	ActivitiesForDay(ctx context.Context, date time.Time) ([]domain.Activity, error)

	DailyStats(ctx context.Context, date time.Time) (*domain.Stats, error)
	WeeklyStats(ctx context.Context, date time.Time) (*domain.Stats, error)
	MonthlyStats(ctx context.Context, date time.Time) (*domain.Stats, error)
	RangeStats(ctx context.Context, start, end time.Time) (*domain.Stats, error)
	TodaySummary(ctx context.Context) (domain.TodaySummary, error)

	DailyGoal(ctx context.Context) (int64, error)
	SetDailyGoal(ctx context.Context, minutes int64) error

	Categories(ctx context.Context) ([]domain.Category, error)
	AddCategory(ctx context.Context, name, color string, productive bool) (domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) error
	DeleteCategory(ctx context.Context, id string) error

	AppCategories(ctx context.Context) ([]domain.AppCategory, error)
	SetAppCategory(ctx context.Context, app, categoryID string) error
	UncategorizedApps(ctx context.Context) ([]string, error)
}

var (
	_ Backend = (*usecase.Service)(nil)
	_ Backend = (*Client)(nil)
)
