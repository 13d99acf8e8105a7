package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/app/config"
	healthHttp "github.com/lukeswagga/discord-auction-bot/internal/pkg/health/delivery/http"
	healthService "github.com/lukeswagga/discord-auction-bot/internal/pkg/health/service"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/cache"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/metrics"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/middleware"
)

// Container holds the dependencies shared by the bot and the sniper
type Container struct {
	// Configuration and Infrastructure
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *metrics.Metrics

	// Cache is nil when Redis is not configured or unreachable
	Cache *cache.Redis

	// Health
	HealthService *healthService.HealthService
	HealthHandler *healthHttp.HealthHandler

	// Middleware
	LoggingMiddleware   *middleware.LoggingMiddleware
	RecoveryMiddleware  *middleware.RecoveryMiddleware
	SecurityMiddleware  *middleware.SecurityMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
	RequestIDMiddleware *middleware.RequestIDMiddleware

	closers []func() error
}

// ContainerOptions defines configuration options for the container
type ContainerOptions struct {
	ConfigPath string
	// ServiceName overrides service_name from config
	ServiceName string
}

// newContainer loads config and builds the shared infrastructure
func newContainer(opts ContainerOptions) (*Container, error) {
	c := &Container{}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.ServiceName != "" {
		cfg.ServiceName = opts.ServiceName
	}
	c.Config = cfg

	c.Logger = logger.New(logger.Options{
		Environment: cfg.Environment,
		LogDir:      cfg.LogDir,
	}).Named(cfg.ServiceName)

	if cfg.MetricsEnabled {
		c.Metrics = metrics.New(c.Logger)
	}

	c.initCache()
	c.initMiddleware()

	return c, nil
}

// initCache connects to Redis. Redis is optional for both services, so a
// failure only downgrades to in-memory state.
func (c *Container) initCache() {
	if c.Config.RedisURL == "" {
		c.Logger.Info("Redis not configured, using in-memory state")
		return
	}

	redisClient, err := cache.New(cache.DefaultConfig(c.Config), c.Logger, c.Metrics)
	if err != nil {
		c.Logger.Warn("Redis unavailable, using in-memory state", zap.Error(err))
		return
	}

	c.Cache = redisClient
	c.addCloser(redisClient.Close)
	c.Logger.Info("Cache initialized successfully")
}

// initMiddleware initializes the HTTP middleware
func (c *Container) initMiddleware() {
	c.LoggingMiddleware = middleware.NewLoggingMiddleware(c.Logger, "/health", c.Config.MetricsPath)
	c.RecoveryMiddleware = middleware.NewRecoveryMiddleware(c.Logger)
	c.SecurityMiddleware = middleware.NewSecurityMiddleware(c.Logger, c.Config.Environment == "development")
	c.RequestIDMiddleware = middleware.NewRequestIDMiddleware(c.Logger)
	c.RateLimitMiddleware = middleware.NewRateLimitMiddleware(middleware.DefaultRateLimitConfig(), c.Cache, c.Logger)

	c.Logger.Info("Middleware initialized successfully")
}

// addCloser registers a shutdown hook; hooks run in reverse order
func (c *Container) addCloser(fn func() error) {
	c.closers = append(c.closers, fn)
}

// Close gracefully shuts down all container dependencies
func (c *Container) Close() error {
	c.Logger.Info("Shutting down container...")

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}

	if err := c.Logger.Sync(); err != nil {
		// Syncing stdout fails on some platforms and is harmless
		c.Logger.Debug("Failed to sync logger", zap.Error(err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// Health runs every registered dependency check
func (c *Container) Health(ctx context.Context) error {
	status := c.HealthService.Ready(ctx)
	if status.Status == "ready" {
		return nil
	}

	var errs []error
	for name, check := range status.Services {
		if check.Status != "healthy" {
			errs = append(errs, fmt.Errorf("%s: %s", name, check.Message))
		}
	}
	return errors.Join(errs...)
}
