package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/app/config"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/metrics"
)

// Database wraps sqlx.DB with query monitoring and metrics
type Database struct {
	*sqlx.DB
	logger  *logger.Logger
	config  *Config
	metrics *metrics.Metrics
}

// Stats represents database connection pool statistics
type Stats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}

// Config holds the database configuration options
type Config struct {
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	RetryAttempts      int
	RetryDelay         time.Duration
	SlowQueryThreshold time.Duration
}

// DefaultConfig returns the database configuration derived from the app config
func DefaultConfig(cfg *config.Config) *Config {
	return &Config{
		URL:                cfg.DBURL,
		MaxOpenConns:       cfg.DBMaxOpenConns,
		MaxIdleConns:       cfg.DBMaxIdleConns,
		ConnMaxLifetime:    cfg.DBConnMaxLifetime,
		ConnMaxIdleTime:    cfg.DBConnMaxIdleTime,
		RetryAttempts:      cfg.DBRetryAttempts,
		RetryDelay:         cfg.DBRetryDelay,
		SlowQueryThreshold: cfg.DBSlowQueryThreshold,
	}
}

// New connects to Postgres, retrying while the database is still starting up
func New(ctx context.Context, cfg *Config, log *logger.Logger, m *metrics.Metrics) (*Database, error) {
	log = log.Named("database")

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var db *sqlx.DB
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err = sqlx.ConnectContext(ctx, "postgres", cfg.URL)
		if err == nil {
			break
		}

		if attempt < attempts {
			log.Warn("Database connection attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Duration("retrying_in", cfg.RetryDelay),
				zap.Error(err))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.RetryDelay):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	log.Info("Successfully connected to the database",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))

	return Wrap(db, cfg, log, m), nil
}

// Wrap builds a Database around an already opened handle
func Wrap(db *sqlx.DB, cfg *Config, log *logger.Logger, m *metrics.Metrics) *Database {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Database{
		DB:      db,
		logger:  log,
		config:  cfg,
		metrics: m,
	}
}

// Close closes the database connection
func (db *Database) Close() error {
	db.logger.Info("Closing database connection")
	return db.DB.Close()
}

// GetStats returns current connection pool statistics
func (db *Database) GetStats() Stats {
	stats := db.DB.Stats()
	return Stats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}
}

// Ping verifies the connection within a short deadline
func (db *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// observe logs slow queries and records query metrics
func (db *Database) observe(operation, query string, start time.Time, err error) {
	duration := time.Since(start)

	if db.config.SlowQueryThreshold > 0 && duration >= db.config.SlowQueryThreshold {
		db.logger.Warn("Slow query detected",
			zap.String("query", query),
			zap.Duration("duration", duration),
			zap.Duration("threshold", db.config.SlowQueryThreshold),
			zap.Error(err))
	}

	db.metrics.RecordDBQuery(operation, extractTableName(query), duration, err)
}

// ExecContext executes a query without returning rows
func (db *Database) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	db.observe("exec", query, start, err)
	return result, err
}

// GetContext gets a single row and scans it into dest
func (db *Database) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := db.DB.GetContext(ctx, dest, query, args...)
	if err == sql.ErrNoRows {
		db.observe("get", query, start, nil)
		return err
	}
	db.observe("get", query, start, err)
	return err
}

// SelectContext gets multiple rows and scans them into dest
func (db *Database) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := db.DB.SelectContext(ctx, dest, query, args...)
	db.observe("select", query, start, err)
	return err
}

// extractTableName extracts the table name from a SQL statement for metric labels
func extractTableName(query string) string {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return "unknown"
	}

	var table string
	switch fields[0] {
	case "insert", "delete":
		// insert into <t>, delete from <t>
		if len(fields) >= 3 {
			table = fields[2]
		}
	case "update":
		if len(fields) >= 2 {
			table = fields[1]
		}
	case "select":
		for i, f := range fields {
			if f == "from" && i+1 < len(fields) {
				table = fields[i+1]
				break
			}
		}
	}

	table = strings.Trim(table, "`\"(),;")
	if table == "" {
		return "unknown"
	}
	return table
}
