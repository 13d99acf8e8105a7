package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// LoggingMiddleware provides request logging functionality
type LoggingMiddleware struct {
	logger    *logger.Logger
	skipPaths map[string]struct{}
}

// NewLoggingMiddleware creates a new logging middleware. Requests to skipPaths
// are logged at debug level so liveness probes do not flood the info log.
func NewLoggingMiddleware(log *logger.Logger, skipPaths ...string) *LoggingMiddleware {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return &LoggingMiddleware{
		logger:    log.Named("http"),
		skipPaths: skip,
	}
}

// GinLogRequest provides Gin-compatible request logging middleware
func (m *LoggingMiddleware) GinLogRequest(c *gin.Context) {
	start := time.Now()
	path := c.Request.URL.Path

	c.Next()

	status := c.Writer.Status()
	level := zapcore.InfoLevel
	switch {
	case status >= 500:
		level = zapcore.ErrorLevel
	case status >= 400:
		level = zapcore.WarnLevel
	default:
		if _, ok := m.skipPaths[path]; ok {
			level = zapcore.DebugLevel
		}
	}

	if ce := m.logger.Check(level, "Request completed"); ce != nil {
		ce.Write(
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Int("response_size", c.Writer.Size()),
		)
	}
}
