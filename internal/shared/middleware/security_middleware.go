package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// SecurityConfig holds configuration for security headers
type SecurityConfig struct {
	ContentSecurityPolicy string
	XFrameOptions         string
	XContentTypeOptions   string
	ReferrerPolicy        string

	// HSTS is only sent outside development
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	CrossOriginResourcePolicy string

	IsDevelopment bool
}

// DefaultSecurityConfig returns headers suited to a JSON-only API
func DefaultSecurityConfig(isDevelopment bool) *SecurityConfig {
	return &SecurityConfig{
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none'",
		XFrameOptions:             "DENY",
		XContentTypeOptions:       "nosniff",
		ReferrerPolicy:            "no-referrer",
		HSTSMaxAge:                31536000, // 1 year
		HSTSIncludeSubdomains:     true,
		CrossOriginResourcePolicy: "same-origin",
		IsDevelopment:             isDevelopment,
	}
}

// SecurityMiddleware sets security headers on every response
type SecurityMiddleware struct {
	headers map[string]string
	logger  *logger.Logger
}

// NewSecurityMiddleware creates a security middleware with the default configuration
func NewSecurityMiddleware(log *logger.Logger, isDevelopment bool) *SecurityMiddleware {
	return NewSecurityMiddlewareWithConfig(DefaultSecurityConfig(isDevelopment), log)
}

// NewSecurityMiddlewareWithConfig creates a security middleware with custom configuration
func NewSecurityMiddlewareWithConfig(cfg *SecurityConfig, log *logger.Logger) *SecurityMiddleware {
	return &SecurityMiddleware{
		headers: buildSecurityHeaders(cfg),
		logger:  log.Named("security"),
	}
}

func buildSecurityHeaders(cfg *SecurityConfig) map[string]string {
	headers := map[string]string{
		"X-Permitted-Cross-Domain-Policies": "none",
	}

	set := func(name, value string) {
		if value != "" {
			headers[name] = value
		}
	}
	set("Content-Security-Policy", cfg.ContentSecurityPolicy)
	set("X-Frame-Options", cfg.XFrameOptions)
	set("X-Content-Type-Options", cfg.XContentTypeOptions)
	set("Referrer-Policy", cfg.ReferrerPolicy)
	set("Cross-Origin-Resource-Policy", cfg.CrossOriginResourcePolicy)

	if !cfg.IsDevelopment && cfg.HSTSMaxAge > 0 {
		hsts := fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		headers["Strict-Transport-Security"] = hsts
	}

	return headers
}

// GinSecurityHeaders provides Gin-compatible security headers middleware
func (sm *SecurityMiddleware) GinSecurityHeaders(c *gin.Context) {
	for name, value := range sm.headers {
		c.Header(name, value)
	}
	c.Next()
}

// GetSecurityHeaders returns a copy of the headers that will be set
func (sm *SecurityMiddleware) GetSecurityHeaders() map[string]string {
	out := make(map[string]string, len(sm.headers))
	for k, v := range sm.headers {
		out[k] = v
	}
	return out
}
