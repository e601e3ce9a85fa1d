package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// Client calls a running tracker's API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for addr, either host:port or a full URL.
func NewClient(addr string) *Client {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Ping checks the server answers /health.
func (c *Client) Ping(ctx context.Context) error {
	var out map[string]any
	return c.do(ctx, http.MethodGet, "/health", nil, nil, &out)
}

func (c *Client) Activities(ctx context.Context, start, end time.Time) ([]domain.Activity, error) {
	var out []domain.Activity
	err := c.do(ctx, http.MethodGet, "/activities", rangeQuery(start, end), nil, &out)
	return out, err
}

func (c *Client) ActivitiesForDay(ctx context.Context, date time.Time) ([]domain.Activity, error) {
	var out []domain.Activity
	err := c.do(ctx, http.MethodGet, "/activities/day", dateQuery(date), nil, &out)
	return out, err
}

func (c *Client) DailyStats(ctx context.Context, date time.Time) (*domain.Stats, error) {
	return c.stats(ctx, "/stats/daily", dateQuery(date))
}

func (c *Client) WeeklyStats(ctx context.Context, date time.Time) (*domain.Stats, error) {
	return c.stats(ctx, "/stats/weekly", dateQuery(date))
}

func (c *Client) MonthlyStats(ctx context.Context, date time.Time) (*domain.Stats, error) {
	return c.stats(ctx, "/stats/monthly", dateQuery(date))
}

func (c *Client) RangeStats(ctx context.Context, start, end time.Time) (*domain.Stats, error) {
	return c.stats(ctx, "/stats/range", rangeQuery(start, end))
}

func (c *Client) stats(ctx context.Context, path string, query url.Values) (*domain.Stats, error) {
	var out domain.Stats
	if err := c.do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TodaySummary(ctx context.Context) (domain.TodaySummary, error) {
	var out domain.TodaySummary
	err := c.do(ctx, http.MethodGet, "/stats/today", nil, nil, &out)
	return out, err
}

func (c *Client) DailyGoal(ctx context.Context) (int64, error) {
	var out goalResponse
	err := c.do(ctx, http.MethodGet, "/goal", nil, nil, &out)
	return out.Minutes, err
}

func (c *Client) SetDailyGoal(ctx context.Context, minutes int64) error {
	return c.do(ctx, http.MethodPut, "/goal", nil, goalRequest{Minutes: &minutes}, nil)
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := c.do(ctx, http.MethodGet, "/categories", nil, nil, &out)
	return out, err
}

func (c *Client) AddCategory(ctx context.Context, name, color string, productive bool) (domain.Category, error) {
	var out domain.Category
	body := categoryRequest{Name: name, Color: color, IsProductive: productive}
	err := c.do(ctx, http.MethodPost, "/categories", nil, body, &out)
	return out, err
}

func (c *Client) UpdateCategory(ctx context.Context, category domain.Category) error {
	body := categoryRequest{Name: category.Name, Color: category.Color, IsProductive: category.IsProductive}
	return c.do(ctx, http.MethodPut, "/categories/"+url.PathEscape(category.ID), nil, body, nil)
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/categories/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) AppCategories(ctx context.Context) ([]domain.AppCategory, error) {
	var out []domain.AppCategory
	err := c.do(ctx, http.MethodGet, "/app-categories", nil, nil, &out)
	return out, err
}

func (c *Client) SetAppCategory(ctx context.Context, app, categoryID string) error {
	body := domain.AppCategory{AppName: app, CategoryID: categoryID}
	return c.do(ctx, http.MethodPut, "/app-categories", nil, body, nil)
}

func (c *Client) UncategorizedApps(ctx context.Context) ([]string, error) {
	var out []string
	err := c.do(ctx, http.MethodGet, "/apps/uncategorized", nil, nil, &out)
	return out, err
}

func dateQuery(date time.Time) url.Values {
	return url.Values{"date": {date.Format(DateLayout)}}
}

func rangeQuery(start, end time.Time) url.Values {
	return url.Values{
		"start": {start.Format(time.RFC3339Nano)},
		"end":   {end.Format(time.RFC3339Nano)},
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// decodeError maps an error response back onto the domain sentinels.
func decodeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	msg := payload.Error
	if msg == "" {
		msg = resp.Status
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		sentinel = domain.ErrInvalidInput
	case http.StatusNotFound:
		sentinel = domain.ErrCategoryNotFound
	case http.StatusServiceUnavailable:
		sentinel = domain.ErrLockUnavailable
	default:
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, msg)
	}
	return &remoteError{sentinel: sentinel, msg: msg}
}

type remoteError struct {
	sentinel error
	msg      string
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.sentinel }
