package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	cron "github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lukeswagga/discord-auction-bot/internal/app/api"
	"github.com/lukeswagga/discord-auction-bot/internal/app/bootstrap"
	"github.com/lukeswagga/discord-auction-bot/internal/scheduler"
)

func main() {
	container, err := bootstrap.NewSniperContainer(bootstrap.ContainerOptions{
		ConfigPath:  "./configs",
		ServiceName: "yahoo-sniper",
	})
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	defer func() {
		if err := container.Close(); err != nil {
			container.Logger.Error("Failed to close container gracefully", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A cycle that overruns its slot delays the next one instead of overlapping it
	cronLogger := cron.PrintfLogger(zap.NewStdLog(container.Logger.Named("cron").Logger))
	cronScheduler := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	jobs := scheduler.NewScheduler(ctx, cronScheduler, container.Logger)
	if err := jobs.RegisterJobs(container.Jobs()...); err != nil {
		container.Logger.Fatal("Failed to register cron jobs", zap.Error(err))
	}

	server := api.NewServer(&api.ServerOptions{
		Config:        container.Config,
		Logger:        container.Logger,
		HealthHandler: container.HealthHandler,
		Routes: []api.RouteRegistrar{
			func(r gin.IRouter) { container.SniperHandler.RegisterGinRoutes(r) },
		},
		LoggingMiddleware:   container.LoggingMiddleware,
		RecoveryMiddleware:  container.RecoveryMiddleware,
		SecurityMiddleware:  container.SecurityMiddleware,
		RequestIDMiddleware: container.RequestIDMiddleware,
		Metrics:             container.Metrics,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		return container.Brands.Run(gctx)
	})

	g.Go(func() error {
		if container.Config.UseDiscordBot {
			if _, err := jobs.RunNow(container.BotProbeJob.Name()); err != nil {
				return err
			}
		}
		// First cycle runs immediately; the schedule takes over afterwards
		if _, err := jobs.RunNow(container.CycleJob.Name()); err != nil {
			return err
		}
		if gctx.Err() == nil {
			jobs.Start()
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		container.Logger.Info("Sniper is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		select {
		case <-jobs.Stop().Done():
			container.Logger.Info("Cron scheduler stopped gracefully")
		case <-shutdownCtx.Done():
			container.Logger.Warn("Cron scheduler shutdown timed out")
		}

		return server.Stop(shutdownCtx)
	})

	container.Logger.Info("Sniper is running",
		zap.Int("port", container.Config.ServerPort),
		zap.String("schedule", container.CycleJob.Schedule()),
		zap.Int("brands", container.Brands.Catalog().Len()),
		zap.String("environment", container.Config.Environment))

	if err := g.Wait(); err != nil {
		container.Logger.Error("Sniper stopped with error", zap.Error(err))
		return
	}
	container.Logger.Info("Sniper gracefully stopped")
}
