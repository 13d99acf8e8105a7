package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/app/config"
	healthHttp "github.com/lukeswagga/discord-auction-bot/internal/pkg/health/delivery/http"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/metrics"
	customMiddleware "github.com/lukeswagga/discord-auction-bot/internal/shared/middleware"
)

// RouteRegistrar mounts a service's routes on the root router
type RouteRegistrar func(r gin.IRouter)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *gin.Engine
	config *config.Config
	logger *logger.Logger
}

// ServerOptions holds the server dependencies
type ServerOptions struct {
	Config              *config.Config
	Logger              *logger.Logger
	HealthHandler       *healthHttp.HealthHandler
	Routes              []RouteRegistrar
	LoggingMiddleware   *customMiddleware.LoggingMiddleware
	RecoveryMiddleware  *customMiddleware.RecoveryMiddleware
	SecurityMiddleware  *customMiddleware.SecurityMiddleware
	RequestIDMiddleware *customMiddleware.RequestIDMiddleware
	Metrics             *metrics.Metrics
}

// NewServer creates a new HTTP server
func NewServer(opts *ServerOptions) *Server {
	// GIN_MODE still applies outside production
	if opts.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	if opts.RequestIDMiddleware != nil {
		r.Use(opts.RequestIDMiddleware.Middleware())
	}
	r.Use(opts.LoggingMiddleware.GinLogRequest)
	r.Use(opts.RecoveryMiddleware.GinRecover)
	if opts.Config.SecurityHeadersEnabled {
		r.Use(opts.SecurityMiddleware.GinSecurityHeaders)
	}

	if opts.Metrics != nil {
		r.Use(opts.Metrics.GinMiddleware())
	}

	setupRoutes(r, opts)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Config.ServerPort),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		server: srv,
		router: r,
		config: opts.Config,
		logger: opts.Logger.Named("server"),
	}
}

// setupRoutes configures all the routes for the application
func setupRoutes(r *gin.Engine, opts *ServerOptions) {
	opts.HealthHandler.RegisterRoutes(r)

	for _, register := range opts.Routes {
		register(r)
	}

	if opts.Metrics != nil {
		r.GET(opts.Config.MetricsPath, opts.Metrics.GinMetricsHandler())
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.Int("port", s.config.ServerPort))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
