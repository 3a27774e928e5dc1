// Package api assembles the HTTP surface: router, middleware, and handlers.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/crestbooks/reconcile-backend/internal/api/handlers"
	"github.com/crestbooks/reconcile-backend/internal/api/middleware"
	"github.com/crestbooks/reconcile-backend/internal/application/service"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
	svc        *service.ReconciliationService
}

// NewServer creates the API server and wires its routes.
func NewServer(cfg Config, svc *service.ReconciliationService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		config: cfg,
		router: gin.New(),
		logger: logger,
		svc:    svc,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.ActingUser())
	s.router.Use(middleware.Logging(s.logger))
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

func (s *Server) setupRoutes() {
	// Health check outside /api for load balancers.
	s.router.GET("/health", handlers.Health)

	recons := handlers.NewReconciliationsHandler(s.svc)
	api := s.router.Group("/api")
	{
		api.POST("/reconciliations", recons.Create)
		api.GET("/reconciliations", recons.List)
		api.GET("/reconciliations/:id", recons.Get)
		api.DELETE("/reconciliations/:id", recons.Delete)

		api.POST("/reconciliations/:id/auto-match", recons.AutoMatch)
		api.POST("/reconciliations/:id/matches", recons.ManualMatch)
		api.DELETE("/reconciliations/:id/matches/:itemId", recons.Unmatch)
		api.GET("/reconciliations/:id/lines/:lineId/suggestions", recons.Suggestions)

		api.POST("/reconciliations/:id/complete", recons.Complete)
		api.POST("/reconciliations/:id/review", recons.Review)
		api.POST("/reconciliations/:id/approve", recons.Approve)
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router returns the gin engine for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}
