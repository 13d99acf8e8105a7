package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/app/config"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// Pool is a native pgx connection pool used by the sniper for its own bookkeeping
type Pool struct {
	*pgxpool.Pool
	logger *logger.Logger
}

// NewPool creates a pgx pool and verifies it with a ping
func NewPool(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	configurePool(poolConfig, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	p := &Pool{Pool: pool, logger: log.Named("pgx-pool")}

	if err := p.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	p.logger.Info("pgx pool established",
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.Int32("max_conns", poolConfig.MaxConns))

	return p, nil
}

func configurePool(pc *pgxpool.Config, cfg *config.Config) {
	if cfg.DBMaxOpenConns > 0 {
		pc.MaxConns = int32(cfg.DBMaxOpenConns)
	}
	pc.MaxConnLifetime = cfg.DBConnMaxLifetime
	pc.MaxConnIdleTime = cfg.DBConnMaxIdleTime

	pc.ConnConfig.RuntimeParams = map[string]string{
		"application_name": cfg.ServiceName,
		"timezone":         "UTC",
	}
}

// Ping tests the pool within a short deadline
func (p *Pool) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("pgx pool ping failed: %w", err)
	}
	return nil
}

// GetStats reports the pool in the same shape as Database.GetStats
func (p *Pool) GetStats() Stats {
	st := p.Pool.Stat()
	return Stats{
		MaxOpenConnections: int(st.MaxConns()),
		OpenConnections:    int(st.TotalConns()),
		InUse:              int(st.AcquiredConns()),
		Idle:               int(st.IdleConns()),
		WaitCount:          st.EmptyAcquireCount(),
		WaitDuration:       st.AcquireDuration(),
	}
}

// Close closes every connection in the pool
func (p *Pool) Close() {
	p.Pool.Close()
	p.logger.Info("pgx pool closed")
}
