package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lukeswagga/discord-auction-bot/internal/app/api"
	"github.com/lukeswagga/discord-auction-bot/internal/app/bootstrap"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/metrics"
)

func main() {
	container, err := bootstrap.NewBotContainer(bootstrap.ContainerOptions{
		ConfigPath: "./configs",
	})
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	defer func() {
		if err := container.Close(); err != nil {
			container.Logger.Error("Failed to close container gracefully", zap.Error(err))
		}
	}()

	limiter := container.RateLimitMiddleware.GinRateLimit()
	server := api.NewServer(&api.ServerOptions{
		Config:        container.Config,
		Logger:        container.Logger,
		HealthHandler: container.HealthHandler,
		Routes: []api.RouteRegistrar{
			func(r gin.IRouter) {
				container.ListingHandler.RegisterGinRoutes(r, container.WebhookAuthMiddleware, limiter)
			},
		},
		LoggingMiddleware:   container.LoggingMiddleware,
		RecoveryMiddleware:  container.RecoveryMiddleware,
		SecurityMiddleware:  container.SecurityMiddleware,
		RequestIDMiddleware: container.RequestIDMiddleware,
		Metrics:             container.Metrics,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// The runner outlives the server so listings accepted during shutdown are drained
	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	g.Go(server.Start)

	// The webhook keeps accepting listings while Discord connects
	g.Go(func() error {
		return container.Runner.Run(runCtx)
	})

	g.Go(func() error {
		reportUptime(gctx, container.Metrics)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		container.Logger.Info("Bot is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return shutdown(shutdownCtx, server.Stop, runCancel)
	})

	container.Logger.Info("Bot is running",
		zap.Int("port", container.Config.ServerPort),
		zap.Bool("discord_enabled", container.Config.DiscordEnabled),
		zap.String("environment", container.Config.Environment))

	healthCtx, healthCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := container.Health(healthCtx); err != nil {
		container.Logger.Warn("Initial health check failed", zap.Error(err))
	} else {
		container.Logger.Info("Initial health check passed")
	}
	healthCancel()

	if err := g.Wait(); err != nil {
		container.Logger.Error("Bot stopped with error", zap.Error(err))
		return
	}
	container.Logger.Info("Bot gracefully stopped")
}

// shutdown stops the webhook server before the delivery loop, so every
// listing the server accepted is still in the buffer when it drains
func shutdown(ctx context.Context, stopServer func(context.Context) error, stopRunner context.CancelFunc) error {
	defer stopRunner()
	return stopServer(ctx)
}

func reportUptime(ctx context.Context, m *metrics.Metrics) {
	start := time.Now()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RecordUptime(time.Since(start))
		}
	}
}
