package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/catalog"
	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/climatology"
	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/config"
)

const serviceName = "sig-riego-rdc-siar-pm"

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg     config.Config
	source  catalog.Source
	orch    *climatology.Orchestrator
	engine  *gin.Engine
	nowFunc func() time.Time
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, source catalog.Source, orch *climatology.Orchestrator) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(corsMiddleware())
	engine.Use(noStoreMiddleware())

	server := &Server{
		cfg:     cfg,
		source:  source,
		orch:    orch,
		engine:  engine,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
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
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine.GET("/api/ping", s.handlePing)
	s.engine.HEAD("/api/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	s.engine.GET("/api/siar_mensual", s.handleLiveness)
	s.engine.POST("/api/siar_mensual", s.handleClimatology)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// noStoreMiddleware keeps intermediaries from caching climatology responses;
// the window for "now" moves every month.
func noStoreMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
