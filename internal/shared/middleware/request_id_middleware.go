package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// RequestIDMiddleware assigns every request an id and records its start time
type RequestIDMiddleware struct {
	logger *logger.Logger
}

// NewRequestIDMiddleware creates a new request ID middleware
func NewRequestIDMiddleware(log *logger.Logger) *RequestIDMiddleware {
	return &RequestIDMiddleware{
		logger: log.Named("request-id"),
	}
}

// GenerateRequestID generates a unique request ID
func (m *RequestIDMiddleware) GenerateRequestID() string {
	return "req-" + uuid.NewString()
}

// Middleware returns the Gin middleware function for request ID handling
func (m *RequestIDMiddleware) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = m.GenerateRequestID()
		}

		c.Header(RequestIDHeader, requestID)
		c.Set("request_id", requestID)
		c.Set("start_time", time.Now())

		ctx := context.WithValue(c.Request.Context(), RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequestIDFromContext returns the request id stored by the middleware
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
