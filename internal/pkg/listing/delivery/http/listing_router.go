package listingHttp

import (
	"github.com/gin-gonic/gin"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/middleware"
)

// RegisterGinRoutes registers the webhook and listing routes
func (h *ListingHandler) RegisterGinRoutes(r gin.IRouter, auth *middleware.WebhookAuthMiddleware, limiter gin.HandlerFunc) {
	webhook := r.Group("/webhook")
	{
		// Ingestion is authenticated; only unauthenticated callers are rate limited
		webhook.POST("", auth.GinAuthenticate, limiter, h.GinWebhook)
		webhook.POST("/listing", auth.GinAuthenticate, limiter, h.GinWebhook)

		webhook.GET("/health", h.GinWebhookHealth)
	}

	r.GET("/check_duplicate/:auction_id", h.GinCheckDuplicate)
	r.GET("/stats", h.GinStats)
	r.GET("/listings/recent", h.GinRecent)
}
