package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
	"github.com/eliteGoblin/focusd/chronos/internal/infra"
	"github.com/eliteGoblin/focusd/chronos/internal/usecase"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, 10, 14, 15, 0, 0, 0, time.Local)

type testEnv struct {
	server    *Server
	service   *usecase.Service
	directory *infra.FileCategoryDirectory
	registry  *prometheus.Registry
	hub       *Hub
}

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestEnv wires a server over a real plain SQLite store seeded with
// Code 10:00-10:04 and Slack 11:00-11:02 on testNow's day.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()

	store, err := infra.OpenActivityStore(filepath.Join(dir, "chronos.db"), nil, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	directory := infra.OpenCategoryDirectory(filepath.Join(dir, "categories.json"), logger)
	clock := fixedClock{now: testNow}

	day := time.Date(2026, 10, 14, 0, 0, 0, 0, time.Local)
	for _, obs := range []struct {
		app string
		at  time.Time
	}{
		{"Code", day.Add(10 * time.Hour)},
		{"Code", day.Add(10*time.Hour + 4*time.Minute)},
		{"Slack", day.Add(11 * time.Hour)},
		{"Slack", day.Add(11*time.Hour + 2*time.Minute)},
	} {
		_, err := store.MergeOrInsert(context.Background(), domain.Activity{
			Application: obs.app,
			Title:       obs.app,
			StartTime:   obs.at,
			EndTime:     obs.at,
		}, 5*time.Minute)
		require.NoError(t, err)
	}

	stats := usecase.NewStatsAggregator(store, directory, clock, logger)
	service := usecase.NewService(store, directory, stats, logger)

	registry := prometheus.NewRegistry()
	hub := NewHub(logger)
	config := DefaultServerConfig()
	config.Version = "test"

	return &testEnv{
		server:    NewServer(config, service, hub, registry, clock, logger),
		service:   service,
		directory: directory,
		registry:  registry,
		hub:       hub,
	}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) categoryID(t *testing.T, name string) string {
	t.Helper()
	cats, err := e.directory.Categories(context.Background())
	require.NoError(t, err)
	for _, c := range cats {
		if c.Name == name {
			return c.ID
		}
	}
	t.Fatalf("category %q not found", name)
	return ""
}

func newRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

func serve(e *testEnv, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func newTestCounter() prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "chronos_test_total", Help: "test"})
	c.Inc()
	return c
}

// setupProductiveCode maps Code to Development and sets a 60 minute goal.
func (e *testEnv) setupProductiveCode(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.service.SetAppCategory(ctx, "Code", e.categoryID(t, "Development")))
	require.NoError(t, e.service.SetDailyGoal(ctx, 60))
}

func serveHandler(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}
