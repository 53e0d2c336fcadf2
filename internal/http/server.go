// Package http exposes the dashboard REST surface: sync trigger, reading
// and history queries, city management and station search.
package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/daffaahh/HowsTheAir-be/internal/config"
	"github.com/daffaahh/HowsTheAir-be/internal/db"
	"github.com/daffaahh/HowsTheAir-be/internal/waqi"
)

// Store is the persistence surface the handlers need; *db.Store satisfies it.
type Store interface {
	ListCities(ctx context.Context) ([]db.MonitoredCity, error)
	CreateCity(ctx context.Context, uid *int64, stationName, keyword string) (db.MonitoredCity, error)
	ToggleCity(ctx context.Context, id int64) (db.MonitoredCity, error)
	UpdateCityKeyword(ctx context.Context, id int64, keyword string) (db.MonitoredCity, error)
	DeleteCity(ctx context.Context, id int64) error
	ListSnapshots(ctx context.Context, q db.SnapshotQuery) ([]db.Snapshot, error)
	ListHistory(ctx context.Context, q db.HistoryQuery) ([]db.HistoryRow, error)
	LastSync(ctx context.Context) (db.AuditLog, error)
	AppendAudit(ctx context.Context, action, status, details string) error
}

// Provider is the upstream client surface; *waqi.Client satisfies it.
type Provider interface {
	Feed(ctx context.Context, target string) (waqi.Reading, error)
	Search(ctx context.Context, keyword string) ([]waqi.SearchResult, error)
}

// Syncer runs one synchronization pass.
type Syncer interface {
	Run(ctx context.Context) (int, error)
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg      config.Config
	store    Store
	provider Provider
	syncer   Syncer
	engine   *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, store Store, provider Provider, syncer Syncer) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(corsMiddleware())

	if cfg.BearerToken != "" {
		engine.Use(bearerAuthMiddleware(cfg.BearerToken))
	}

	server := &Server{cfg: cfg, store: store, provider: provider, syncer: syncer, engine: engine}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	aq := s.engine.Group("/air-quality")
	{
		aq.POST("/sync", s.handleSync)
		aq.GET("", s.handleListReadings)
		aq.GET("/history", s.handleListHistory)
		aq.GET("/last-sync", s.handleLastSync)
	}

	cities := s.engine.Group("/cities")
	{
		cities.POST("", s.handleCreateCity)
		cities.GET("", s.handleListCities)
		cities.GET("/search", s.handleSearchStations)
		cities.PATCH("/:id/toggle", s.handleToggleCity)
		cities.PATCH("/:id", s.handleUpdateCity)
		cities.DELETE("/:id", s.handleDeleteCity)
	}
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
