package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// Pinger is anything that can verify its connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker turns a Pinger into a HealthChecker
type PingChecker struct {
	name    string
	target  Pinger
	timeout time.Duration
	logger  *logger.Logger
}

// NewPingChecker creates a checker named name that pings target
func NewPingChecker(name string, target Pinger, log *logger.Logger) *PingChecker {
	return &PingChecker{
		name:    name,
		target:  target,
		timeout: 5 * time.Second,
		logger:  log.Named(name + "-health-checker"),
	}
}

// NewDatabaseHealthChecker checks the listing database
func NewDatabaseHealthChecker(db Pinger, log *logger.Logger) *PingChecker {
	return NewPingChecker("database", db, log)
}

// NewRedisHealthChecker checks Redis
func NewRedisHealthChecker(client Pinger, log *logger.Logger) *PingChecker {
	return NewPingChecker("redis", client, log)
}

// Name returns the name of this health checker
func (c *PingChecker) Name() string {
	return c.name
}

// Check performs the health check
func (c *PingChecker) Check() Check {
	check := Check{
		Status: "healthy",
		Time:   time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.target.Ping(ctx); err != nil {
		check.Status = "unhealthy"
		check.Message = c.name + " connection failed: " + err.Error()
		c.logger.Error("Health check failed", zap.Error(err))
		return check
	}

	check.Message = c.name + " connection is healthy"
	return check
}
