package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// DateLayout is the calendar date format accepted by ?date=.
const DateLayout = "2006-01-02"

type goalRequest struct {
	Minutes *int64 `json:"minutes"`
}

type goalResponse struct {
	Minutes int64 `json:"minutes"`
}

type categoryRequest struct {
	Name         string `json:"name"`
	Color        string `json:"color"`
	IsProductive bool   `json:"is_productive"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrLockUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// parseDate reads ?key= as a calendar date or RFC3339 timestamp.
// A missing value means today.
func (s *Server) parseDate(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return s.clock.Now(), nil
	}
	if t, err := time.ParseInLocation(DateLayout, raw, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, badRequest("%s must be YYYY-MM-DD or RFC3339, got %q", key, raw)
	}
	return t.Local(), nil
}

func parseInstant(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, badRequest("%s is required", key)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, badRequest("%s must be RFC3339, got %q", key, raw)
	}
	return t.Local(), nil
}

func parseRange(c *gin.Context) (time.Time, time.Time, error) {
	start, err := parseInstant(c, "start")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseInstant(c, "end")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": s.clock.Now().UTC().Format(time.RFC3339),
		"version":   s.config.Version,
	})
}

func (s *Server) listActivities(c *gin.Context) {
	start, end, err := parseRange(c)
	if err != nil {
		writeError(c, err)
		return
	}
	activities, err := s.backend.Activities(c.Request.Context(), start, end)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, activities)
}

func (s *Server) activitiesForDay(c *gin.Context) {
	date, err := s.parseDate(c, "date")
	if err != nil {
		writeError(c, err)
		return
	}
	activities, err := s.backend.ActivitiesForDay(c.Request.Context(), date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, activities)
}

func (s *Server) dailyStats(c *gin.Context) {
	s.statsFor(c, s.backend.DailyStats)
}

func (s *Server) weeklyStats(c *gin.Context) {
	s.statsFor(c, s.backend.WeeklyStats)
}

func (s *Server) monthlyStats(c *gin.Context) {
	s.statsFor(c, s.backend.MonthlyStats)
}

func (s *Server) statsFor(c *gin.Context, fn func(ctx context.Context, date time.Time) (*domain.Stats, error)) {
	date, err := s.parseDate(c, "date")
	if err != nil {
		writeError(c, err)
		return
	}
	stats, err := fn(c.Request.Context(), date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) rangeStats(c *gin.Context) {
	start, end, err := parseRange(c)
	if err != nil {
		writeError(c, err)
		return
	}
	stats, err := s.backend.RangeStats(c.Request.Context(), start, end)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) todaySummary(c *gin.Context) {
	summary, err := s.backend.TodaySummary(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) getGoal(c *gin.Context) {
	minutes, err := s.backend.DailyGoal(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, goalResponse{Minutes: minutes})
}

func (s *Server) setGoal(c *gin.Context) {
	var req goalRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Minutes == nil {
		writeError(c, badRequest("body must be {\"minutes\": <int>}"))
		return
	}
	if err := s.backend.SetDailyGoal(c.Request.Context(), *req.Minutes); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, goalResponse{Minutes: *req.Minutes})
}

func (s *Server) listCategories(c *gin.Context) {
	cats, err := s.backend.Categories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

func (s *Server) addCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("invalid category body: %v", err))
		return
	}
	cat, err := s.backend.AddCategory(c.Request.Context(), req.Name, req.Color, req.IsProductive)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (s *Server) updateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("invalid category body: %v", err))
		return
	}
	cat := domain.Category{
		ID:           c.Param("id"),
		Name:         req.Name,
		Color:        req.Color,
		IsProductive: req.IsProductive,
	}
	if err := s.backend.UpdateCategory(c.Request.Context(), cat); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (s *Server) deleteCategory(c *gin.Context) {
	if err := s.backend.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listAppCategories(c *gin.Context) {
	mappings, err := s.backend.AppCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mappings)
}

func (s *Server) setAppCategory(c *gin.Context) {
	var req domain.AppCategory
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("invalid mapping body: %v", err))
		return
	}
	if err := s.backend.SetAppCategory(c.Request.Context(), req.AppName, req.CategoryID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (s *Server) uncategorizedApps(c *gin.Context) {
	apps, err := s.backend.UncategorizedApps(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}
