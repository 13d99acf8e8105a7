package bootstrap

import (
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/health"
	healthHttp "github.com/lukeswagga/discord-auction-bot/internal/pkg/health/delivery/http"
	healthService "github.com/lukeswagga/discord-auction-bot/internal/pkg/health/service"
)

// initHealth builds the health service around the service's readiness flag
// and registers a checker for every store that was connected
func (c *Container) initHealth(readiness health.Readiness, checkers ...health.HealthChecker) {
	c.HealthService = healthService.NewHealthService(c.Config.ServiceName, readiness, health.SystemClock, c.Logger)

	if c.Cache != nil {
		c.HealthService.AddChecker(health.NewRedisHealthChecker(c.Cache, c.Logger))
	}
	for _, checker := range checkers {
		c.HealthService.AddChecker(checker)
	}

	c.HealthHandler = healthHttp.NewHealthHandler(c.HealthService, c.Logger)
}
