package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string
	Version         string
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            "127.0.0.1:8742",
		Version:         "dev",
		ShutdownTimeout: 5 * time.Second,
	}
}

// Server serves the tracker API.
type Server struct {
	config   ServerConfig
	backend  Backend
	hub      *Hub
	gatherer prometheus.Gatherer
	clock    domain.Clock
	logger   *zap.Logger
	engine   *gin.Engine
}

// NewServer builds the router. hub and gatherer may be nil, which
// disables /ws and /metrics respectively.
func NewServer(
	config ServerConfig,
	backend Backend,
	hub *Hub,
	gatherer prometheus.Gatherer,
	clock domain.Clock,
	logger *zap.Logger,
) *Server {
	s := &Server{
		config:   config,
		backend:  backend,
		hub:      hub,
		gatherer: gatherer,
		clock:    clock,
		logger:   logger,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(AccessLog(s.logger))

	r.GET("/health", s.health)

	r.GET("/activities", s.listActivities)
	r.GET("/activities/day", s.activitiesForDay)

	stats := r.Group("/stats")
	{
		stats.GET("/daily", s.dailyStats)
		stats.GET("/weekly", s.weeklyStats)
		stats.GET("/monthly", s.monthlyStats)
		stats.GET("/range", s.rangeStats)
		stats.GET("/today", s.todaySummary)
	}

	r.GET("/goal", s.getGoal)
	r.PUT("/goal", s.setGoal)

	r.GET("/categories", s.listCategories)
	r.POST("/categories", s.addCategory)
	r.PUT("/categories/:id", s.updateCategory)
	r.DELETE("/categories/:id", s.deleteCategory)

	r.GET("/app-categories", s.listAppCategories)
	r.PUT("/app-categories", s.setAppCategory)
	r.GET("/apps/uncategorized", s.uncategorizedApps)

	if s.hub != nil {
		r.GET("/ws", s.hub.ServeWS)
	}
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address and serves until ctx is canceled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("api server started", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		s.logger.Info("api server stopping")
		if s.hub != nil {
			s.hub.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("api server shutdown", zap.Error(err))
		}
		return ctx.Err()
	}
}
