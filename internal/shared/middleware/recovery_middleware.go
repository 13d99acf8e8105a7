package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/utils"
)

// RecoveryMiddleware provides panic recovery functionality
type RecoveryMiddleware struct {
	logger    *logger.Logger
	responder *utils.ResponseHandler
}

// NewRecoveryMiddleware creates a new recovery middleware
func NewRecoveryMiddleware(log *logger.Logger) *RecoveryMiddleware {
	return &RecoveryMiddleware{
		logger:    log.Named("recovery"),
		responder: utils.NewResponseHandler(log),
	}
}

// GinRecover turns a handler panic into a 500 response
func (m *RecoveryMiddleware) GinRecover(c *gin.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("Panic recovered",
				zap.Any("error", rec),
				zap.String("stack", string(debug.Stack())),
				zap.String("request_id", c.GetString("request_id")),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
			)

			m.responder.GinInternalError(c, fmt.Errorf("panic: %v", rec))
		}
	}()

	c.Next()
}
