package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/utils"
)

// WebhookAuthMiddleware checks the bearer token the sniper attaches to webhook calls
type WebhookAuthMiddleware struct {
	secret          string
	issuer          string
	logger          *logger.Logger
	responseHandler *utils.ResponseHandler
}

// NewWebhookAuthMiddleware creates the middleware. An empty secret disables the check.
func NewWebhookAuthMiddleware(secret, issuer string, log *logger.Logger) *WebhookAuthMiddleware {
	log = log.Named("webhook-auth")
	if secret == "" {
		log.Warn("Webhook secret not set, webhook endpoints accept unauthenticated requests")
	}

	return &WebhookAuthMiddleware{
		secret:          secret,
		issuer:          issuer,
		logger:          log,
		responseHandler: utils.NewResponseHandler(log),
	}
}

// Enabled reports whether tokens are being verified
func (m *WebhookAuthMiddleware) Enabled() bool {
	return m.secret != ""
}

// GinAuthenticate validates the Authorization header
func (m *WebhookAuthMiddleware) GinAuthenticate(c *gin.Context) {
	if !m.Enabled() {
		c.Next()
		return
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		m.responseHandler.GinUnauthorized(c, "Authentication required")
		return
	}

	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		m.responseHandler.GinUnauthorized(c, "Invalid authorization format, expected 'Bearer {token}'")
		return
	}

	claims, err := utils.ParseWebhookToken(m.secret, m.issuer, token)
	if err != nil {
		m.logger.Warn("Rejected webhook token",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("client_ip", c.ClientIP()),
			zap.Error(err))
		m.responseHandler.GinUnauthorized(c, "Invalid or expired token")
		return
	}

	c.Set("webhook_issuer", claims.Issuer)
	ctx := context.WithValue(c.Request.Context(), WebhookIssuerKey, claims.Issuer)
	c.Request = c.Request.WithContext(ctx)

	c.Next()
}
