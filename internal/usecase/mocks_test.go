package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// mockClock implements domain.Clock for testing
type mockClock struct {
	now time.Time
}

func (c *mockClock) Now() time.Time { return c.now }

func (c *mockClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// mockWindowProvider implements domain.WindowProvider for testing
type mockWindowProvider struct {
	window domain.Window
	err    error
}

func (m *mockWindowProvider) ActiveWindow() (domain.Window, error) {
	if m.err != nil {
		return domain.Window{}, m.err
	}
	return m.window, nil
}

// mockInputProvider implements domain.InputProvider for testing
type mockInputProvider struct {
	sig domain.InputSignature
	err error
}

func (m *mockInputProvider) Signature() (domain.InputSignature, error) {
	if m.err != nil {
		return domain.InputSignature{}, m.err
	}
	return m.sig, nil
}

// mockActivityStore implements domain.ActivityStore for testing
type mockActivityStore struct {
	merged      []domain.Activity
	mergeWindow time.Duration
	mergeResult domain.MergeResult
	mergeErr    error

	activities []domain.Activity
	queryErr   error
	apps       []string

	betweenStart time.Time
	betweenEnd   time.Time
}

func (m *mockActivityStore) MergeOrInsert(ctx context.Context, a domain.Activity, window time.Duration) (domain.MergeResult, error) {
	if m.mergeErr != nil {
		return domain.MergeResult{}, m.mergeErr
	}
	m.merged = append(m.merged, a)
	m.mergeWindow = window
	return m.mergeResult, nil
}

func (m *mockActivityStore) Between(ctx context.Context, start, end time.Time) ([]domain.Activity, error) {
	m.betweenStart, m.betweenEnd = start, end
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.activities, nil
}

func (m *mockActivityStore) ForDay(ctx context.Context, date time.Time) ([]domain.Activity, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.activities, nil
}

func (m *mockActivityStore) DistinctApplications(ctx context.Context) ([]string, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.apps, nil
}

func (m *mockActivityStore) Close() error { return nil }

// mockDirectory implements domain.CategoryDirectory for testing
type mockDirectory struct {
	categories []domain.Category
	mappings   map[string]string
	goal       int64
	err        error
}

func newMockDirectory(goal int64, categories ...domain.Category) *mockDirectory {
	return &mockDirectory{categories: categories, mappings: map[string]string{}, goal: goal}
}

func (m *mockDirectory) Categories(ctx context.Context) ([]domain.Category, error) {
	return m.categories, m.err
}

func (m *mockDirectory) AddCategory(ctx context.Context, name, color string, productive bool) (domain.Category, error) {
	if m.err != nil {
		return domain.Category{}, m.err
	}
	c := domain.Category{ID: "id-" + name, Name: name, Color: color, IsProductive: productive}
	m.categories = append(m.categories, c)
	return c, nil
}

func (m *mockDirectory) UpdateCategory(ctx context.Context, c domain.Category) error {
	if m.err != nil {
		return m.err
	}
	for i := range m.categories {
		if m.categories[i].ID == c.ID {
			m.categories[i] = c
			return nil
		}
	}
	return domain.ErrCategoryNotFound
}

func (m *mockDirectory) DeleteCategory(ctx context.Context, id string) error {
	return m.err
}

func (m *mockDirectory) AppCategories(ctx context.Context) ([]domain.AppCategory, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.AppCategory, 0, len(m.mappings))
	for app, id := range m.mappings {
		out = append(out, domain.AppCategory{AppName: app, CategoryID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppName < out[j].AppName })
	return out, nil
}

func (m *mockDirectory) SetAppCategory(ctx context.Context, app, id string) error {
	if m.err != nil {
		return m.err
	}
	for _, c := range m.categories {
		if c.ID == id {
			m.mappings[app] = id
			return nil
		}
	}
	return domain.ErrCategoryNotFound
}

func (m *mockDirectory) Lookup(ctx context.Context, app string) (*domain.Category, error) {
	snap, _ := m.Snapshot(ctx)
	return snap.Lookup(app), m.err
}

func (m *mockDirectory) DailyGoal(ctx context.Context) (int64, error) {
	return m.goal, m.err
}

func (m *mockDirectory) SetDailyGoal(ctx context.Context, minutes int64) error {
	if m.err != nil {
		return m.err
	}
	m.goal = minutes
	return nil
}

func (m *mockDirectory) Snapshot(ctx context.Context) (domain.CategorySnapshot, error) {
	if m.err != nil {
		return domain.CategorySnapshot{}, m.err
	}
	mappings := make(map[string]string, len(m.mappings))
	for k, v := range m.mappings {
		mappings[k] = v
	}
	return domain.CategorySnapshot{
		Categories:       append([]domain.Category(nil), m.categories...),
		AppCategories:    mappings,
		DailyGoalMinutes: m.goal,
	}, nil
}

// interval builds an activity spanning [base+from, base+to] seconds.
func interval(app string, base time.Time, from, to int, idle bool) domain.Activity {
	return domain.Activity{
		Title:       app + " window",
		Application: app,
		StartTime:   base.Add(time.Duration(from) * time.Second),
		EndTime:     base.Add(time.Duration(to) * time.Second),
		IsIdle:      idle,
	}
}
