package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

const defaultCategoryColor = "#6B7280"

// categoryDocument is the on-disk layout of categories.json.
type categoryDocument struct {
	Categories       []domain.Category `json:"categories"`
	AppCategories    map[string]string `json:"app_categories"`
	DailyGoalMinutes int64             `json:"daily_goal_minutes"`
}

func (d *categoryDocument) clone() *categoryDocument {
	c := &categoryDocument{
		Categories:       append([]domain.Category(nil), d.Categories...),
		AppCategories:    make(map[string]string, len(d.AppCategories)),
		DailyGoalMinutes: d.DailyGoalMinutes,
	}
	for k, v := range d.AppCategories {
		c.AppCategories[k] = v
	}
	return c
}

func (d *categoryDocument) indexOf(id string) int {
	for i := range d.Categories {
		if d.Categories[i].ID == id {
			return i
		}
	}
	return -1
}

// DefaultCategories returns the preset categories with fresh ids.
func DefaultCategories() []domain.Category {
	presets := []struct {
		name       string
		color      string
		productive bool
	}{
		{"Work", "#4F46E5", true},
		{"Development", "#2563EB", true},
		{"Communication", "#7C3AED", true},
		{"Entertainment", "#DC2626", false},
		{"Social Media", "#EA580C", false},
	}

	cats := make([]domain.Category, 0, len(presets))
	for _, p := range presets {
		cats = append(cats, domain.Category{
			ID:           uuid.NewString(),
			Name:         p.name,
			Color:        p.color,
			IsProductive: p.productive,
		})
	}
	return cats
}

func defaultDocument() *categoryDocument {
	return &categoryDocument{
		Categories:    DefaultCategories(),
		AppCategories: make(map[string]string),
	}
}

// FileCategoryDirectory implements domain.CategoryDirectory with a JSON
// document. Every mutation is written to disk before it returns.
type FileCategoryDirectory struct {
	path   string
	doc    *categoryDocument
	lock   *semaphore.Weighted
	logger *zap.Logger
}

// OpenCategoryDirectory loads the document at path. A missing document
// is seeded with the default presets and written out so their IDs stay
// stable across processes. An unreadable document falls back to the
// presets in memory and is left untouched on disk.
func OpenCategoryDirectory(path string, logger *zap.Logger) *FileCategoryDirectory {
	d := &FileCategoryDirectory{
		path:   path,
		lock:   semaphore.NewWeighted(1),
		logger: logger,
	}

	doc, missing := loadCategoryDocument(path, logger)
	if missing {
		if err := d.save(doc); err != nil {
			logger.Warn("failed to write default categories",
				zap.String("path", path),
				zap.Error(err))
		}
	}
	d.doc = doc
	return d
}

// loadCategoryDocument reports whether the document was absent.
func loadCategoryDocument(path string, logger *zap.Logger) (*categoryDocument, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultDocument(), true
		}
		logger.Warn("failed to read categories, using defaults",
			zap.String("path", path),
			zap.Error(err))
		return defaultDocument(), false
	}

	var doc categoryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warn("failed to parse categories, using defaults",
			zap.String("path", path),
			zap.Error(err))
		return defaultDocument(), false
	}
	if doc.AppCategories == nil {
		doc.AppCategories = make(map[string]string)
	}
	if doc.Categories == nil {
		doc.Categories = []domain.Category{}
	}
	return &doc, false
}

// Path returns the document location.
func (d *FileCategoryDirectory) Path() string {
	return d.path
}

func (d *FileCategoryDirectory) acquire(ctx context.Context) error {
	if err := d.lock.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: category directory: %v", domain.ErrLockUnavailable, err)
	}
	return nil
}

// read runs fn against the current document under the lock.
func (d *FileCategoryDirectory) read(ctx context.Context, fn func(doc *categoryDocument)) error {
	if err := d.acquire(ctx); err != nil {
		return err
	}
	defer d.lock.Release(1)
	fn(d.doc)
	return nil
}

// mutate applies fn to a copy of the document, persists it and only then
// swaps it in, so a failed write leaves memory unchanged.
func (d *FileCategoryDirectory) mutate(ctx context.Context, fn func(doc *categoryDocument) error) error {
	if err := d.acquire(ctx); err != nil {
		return err
	}
	defer d.lock.Release(1)

	next := d.doc.clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := d.save(next); err != nil {
		return fmt.Errorf("save categories: %w", err)
	}
	d.doc = next
	return nil
}

func (d *FileCategoryDirectory) save(doc *categoryDocument) error {
	if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", d.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, d.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Categories returns a copy of every category.
func (d *FileCategoryDirectory) Categories(ctx context.Context) ([]domain.Category, error) {
	var cats []domain.Category
	err := d.read(ctx, func(doc *categoryDocument) {
		cats = append([]domain.Category{}, doc.Categories...)
	})
	return cats, err
}

// AddCategory creates a category with a new UUID.
func (d *FileCategoryDirectory) AddCategory(ctx context.Context, name, color string, productive bool) (domain.Category, error) {
	cat := domain.Category{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Color:        normalizeColor(color),
		IsProductive: productive,
	}
	if cat.Name == "" {
		return domain.Category{}, fmt.Errorf("%w: category name is required", domain.ErrInvalidInput)
	}

	err := d.mutate(ctx, func(doc *categoryDocument) error {
		doc.Categories = append(doc.Categories, cat)
		return nil
	})
	if err != nil {
		return domain.Category{}, err
	}
	return cat, nil
}

// UpdateCategory replaces name, color and productivity of an existing category.
func (d *FileCategoryDirectory) UpdateCategory(ctx context.Context, category domain.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	category.Color = normalizeColor(category.Color)
	if category.Name == "" {
		return fmt.Errorf("%w: category name is required", domain.ErrInvalidInput)
	}

	return d.mutate(ctx, func(doc *categoryDocument) error {
		i := doc.indexOf(category.ID)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrCategoryNotFound, category.ID)
		}
		doc.Categories[i] = category
		return nil
	})
}

// DeleteCategory removes a category and every mapping that points at it.
func (d *FileCategoryDirectory) DeleteCategory(ctx context.Context, id string) error {
	return d.mutate(ctx, func(doc *categoryDocument) error {
		i := doc.indexOf(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrCategoryNotFound, id)
		}
		doc.Categories = append(doc.Categories[:i], doc.Categories[i+1:]...)
		for app, catID := range doc.AppCategories {
			if catID == id {
				delete(doc.AppCategories, app)
			}
		}
		return nil
	})
}

// AppCategories returns every mapping sorted by app name.
func (d *FileCategoryDirectory) AppCategories(ctx context.Context) ([]domain.AppCategory, error) {
	var out []domain.AppCategory
	err := d.read(ctx, func(doc *categoryDocument) {
		out = make([]domain.AppCategory, 0, len(doc.AppCategories))
		for app, id := range doc.AppCategories {
			out = append(out, domain.AppCategory{AppName: app, CategoryID: id})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].AppName < out[j].AppName })
	return out, err
}

// SetAppCategory maps app to categoryID. Unknown categories are rejected
// before anything is changed or written.
func (d *FileCategoryDirectory) SetAppCategory(ctx context.Context, app, categoryID string) error {
	return d.mutate(ctx, func(doc *categoryDocument) error {
		if doc.indexOf(categoryID) < 0 {
			return fmt.Errorf("%w: %s", domain.ErrCategoryNotFound, categoryID)
		}
		doc.AppCategories[app] = categoryID
		return nil
	})
}

// Lookup returns the category of app, nil when uncategorized.
func (d *FileCategoryDirectory) Lookup(ctx context.Context, app string) (*domain.Category, error) {
	var cat *domain.Category
	err := d.read(ctx, func(doc *categoryDocument) {
		cat = snapshotOf(doc).Lookup(app)
	})
	return cat, err
}

func (d *FileCategoryDirectory) DailyGoal(ctx context.Context) (int64, error) {
	var goal int64
	err := d.read(ctx, func(doc *categoryDocument) {
		goal = doc.DailyGoalMinutes
	})
	return goal, err
}

func (d *FileCategoryDirectory) SetDailyGoal(ctx context.Context, minutes int64) error {
	if minutes < 0 {
		return fmt.Errorf("%w: daily goal must not be negative", domain.ErrInvalidInput)
	}
	return d.mutate(ctx, func(doc *categoryDocument) error {
		doc.DailyGoalMinutes = minutes
		return nil
	})
}

// Snapshot copies categories, mappings and goal under one lock.
func (d *FileCategoryDirectory) Snapshot(ctx context.Context) (domain.CategorySnapshot, error) {
	var snap domain.CategorySnapshot
	err := d.read(ctx, func(doc *categoryDocument) {
		snap = snapshotOf(doc.clone())
	})
	return snap, err
}

func snapshotOf(doc *categoryDocument) domain.CategorySnapshot {
	return domain.CategorySnapshot{
		Categories:       doc.Categories,
		AppCategories:    doc.AppCategories,
		DailyGoalMinutes: doc.DailyGoalMinutes,
	}
}

func normalizeColor(color string) string {
	color = strings.TrimSpace(color)
	if color == "" {
		return defaultCategoryColor
	}
	return color
}

// Ensure FileCategoryDirectory implements domain.CategoryDirectory.
var _ domain.CategoryDirectory = (*FileCategoryDirectory)(nil)
