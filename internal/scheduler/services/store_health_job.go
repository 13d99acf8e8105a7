package schedulerServices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/database"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/metrics"
)

// StatsStore is a connection pool the job can ping and inspect.
// Both database.Database and database.Pool satisfy it.
type StatsStore interface {
	Ping(ctx context.Context) error
	GetStats() database.Stats
}

// Pinger is a dependency that only supports a liveness check
type Pinger interface {
	Ping(ctx context.Context) error
}

// PoolInfo summarises pool pressure
type PoolInfo struct {
	Utilization float64
	Status      string
}

// StoreHealthJob pings the database and Redis and publishes pool gauges
type StoreHealthJob struct {
	db      StatsStore
	redis   Pinger
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewStoreHealthJob creates the store health job. Either dependency may be nil.
func NewStoreHealthJob(db StatsStore, redis Pinger, log *logger.Logger, m *metrics.Metrics) *StoreHealthJob {
	return &StoreHealthJob{
		db:      db,
		redis:   redis,
		logger:  log.Named("store-health-job"),
		metrics: m,
	}
}

// Name returns the name of the job
func (j *StoreHealthJob) Name() string {
	return "store-health-check"
}

// Schedule returns the cron schedule expression (runs every minute)
func (j *StoreHealthJob) Schedule() string {
	return "* * * * *"
}

// Description returns a description of what the job does
func (j *StoreHealthJob) Description() string {
	return "Checks database and Redis connectivity and records connection pool usage"
}

// Timeout returns the maximum time the job should run
func (j *StoreHealthJob) Timeout() time.Duration {
	return 30 * time.Second
}

// Run executes the health check. Both stores are always checked; the errors
// are joined.
func (j *StoreHealthJob) Run(ctx context.Context) error {
	var errs []error

	if j.db != nil {
		if err := j.checkDatabase(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if j.redis != nil {
		if err := j.redis.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis ping failed: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (j *StoreHealthJob) checkDatabase(ctx context.Context) error {
	if err := j.db.Ping(ctx); err != nil {
		return fmt.Errorf("database connectivity check failed: %w", err)
	}

	stats := j.db.GetStats()
	j.metrics.UpdateDBConnections(stats.OpenConnections, stats.InUse, stats.Idle)

	info := AnalyzePool(stats)
	fields := []zap.Field{
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int("max_open_connections", stats.MaxOpenConnections),
		zap.Int("in_use", stats.InUse),
		zap.Int("idle", stats.Idle),
		zap.Float64("pool_utilization", info.Utilization),
	}

	if info.Status == "high" {
		j.logger.Warn("Database connection pool is near capacity", fields...)
	} else {
		j.logger.Debug("Database health check passed", fields...)
	}
	return nil
}

// AnalyzePool rates pool utilization as normal, moderate (>=70%) or high (>=90%)
func AnalyzePool(stats database.Stats) PoolInfo {
	if stats.MaxOpenConnections <= 0 {
		return PoolInfo{Status: "unbounded"}
	}

	info := PoolInfo{
		Utilization: float64(stats.OpenConnections) / float64(stats.MaxOpenConnections) * 100,
	}
	switch {
	case info.Utilization >= 90:
		info.Status = "high"
	case info.Utilization >= 70:
		info.Status = "moderate"
	default:
		info.Status = "normal"
	}
	return info
}
