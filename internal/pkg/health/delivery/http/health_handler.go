package healthHttp

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/pkg/health"
	healthService "github.com/lukeswagga/discord-auction-bot/internal/pkg/health/service"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// HealthHandler handles HTTP requests for health checks
type HealthHandler struct {
	service *healthService.HealthService
	logger  *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service *healthService.HealthService, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		service: service,
		logger:  log.Named("health-handler"),
	}
}

// RegisterRoutes mounts /, /health and /ready
func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.GinRoot)
	r.GET("/health", h.GinHealth)
	r.GET("/ready", h.GinReady)
}

// GinHealth reports liveness and the bot readiness flag. A bot that is still connecting is
// alive, so not-ready is a 200.
func (h *HealthHandler) GinHealth(c *gin.Context) {
	res := h.service.Health(c.Request.Context())

	h.logger.Debug("Health check requested",
		zap.Stringer("outcome", res.Outcome),
		zap.Bool("bot_ready", res.BotReady))

	switch res.Outcome {
	case health.OutcomeHealthy, health.OutcomeNotReady:
		c.JSON(http.StatusOK, health.Payload{
			Status:    "healthy",
			BotReady:  res.BotReady,
			Timestamp: res.Timestamp,
		})
	default:
		msg := "unknown error"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		c.JSON(http.StatusInternalServerError, health.ErrorPayload{
			Status: "error",
			Error:  msg,
		})
	}
}

// GinRoot answers the service banner
func (h *HealthHandler) GinRoot(c *gin.Context) {
	status, err := h.service.Root(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, health.ErrorPayload{Status: "error", Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

// GinReady reports dependency readiness
func (h *HealthHandler) GinReady(c *gin.Context) {
	status := h.service.Ready(c.Request.Context())

	code := http.StatusOK
	if status.Status != "ready" {
		code = http.StatusServiceUnavailable
		h.logger.Warn("Readiness check failed", zap.Any("services", status.Services))
	}

	c.JSON(code, status)
}
