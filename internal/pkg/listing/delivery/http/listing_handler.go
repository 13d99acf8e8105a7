package listingHttp

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
	listingService "github.com/lukeswagga/discord-auction-bot/internal/pkg/listing/service"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/utils"
)

// ListingHandler handles the webhook and listing query endpoints
type ListingHandler struct {
	service         listingService.ListingService
	logger          *logger.Logger
	responseHandler *utils.ResponseHandler
}

// NewListingHandler creates a new listing handler
func NewListingHandler(svc listingService.ListingService, log *logger.Logger) *ListingHandler {
	return &ListingHandler{
		service:         svc,
		logger:          log.Named("listing-handler"),
		responseHandler: utils.NewResponseHandler(log.Named("listing-responses")),
	}
}

// GinWebhook accepts a listing from the sniper
func (h *ListingHandler) GinWebhook(c *gin.Context) {
	var req listing.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responseHandler.GinBadRequest(c, "No data")
		return
	}

	resp, err := h.service.Ingest(c.Request.Context(), &req)
	if err != nil {
		utils.GinHandleServiceError(c, err, h.responseHandler)
		return
	}

	h.responseHandler.GinJSON(c, http.StatusOK, resp)
}

// GinWebhookHealth reports the Discord side of the bot
func (h *ListingHandler) GinWebhookHealth(c *gin.Context) {
	h.responseHandler.GinJSON(c, http.StatusOK, h.service.BotHealth())
}

// GinCheckDuplicate answers whether an auction was already delivered
func (h *ListingHandler) GinCheckDuplicate(c *gin.Context) {
	auctionID := c.Param("auction_id")

	exists, err := h.service.IsDuplicate(c.Request.Context(), auctionID)
	if err != nil {
		h.responseHandler.GinErrorWith(c, err, http.StatusInternalServerError, gin.H{"exists": false})
		return
	}

	h.responseHandler.GinJSON(c, http.StatusOK, gin.H{
		"exists":     exists,
		"auction_id": auctionID,
	})
}

// GinStats reports store totals
func (h *ListingHandler) GinStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.responseHandler.GinErrorWith(c, err, http.StatusInternalServerError, nil)
		return
	}

	h.responseHandler.GinJSON(c, http.StatusOK, stats)
}

// GinRecent lists the newest stored listings
func (h *ListingHandler) GinRecent(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.responseHandler.GinBadRequest(c, "limit must be an integer")
			return
		}
		limit = n
	}

	listings, err := h.service.Recent(c.Request.Context(), limit)
	if err != nil {
		utils.GinHandleServiceError(c, err, h.responseHandler)
		return
	}

	h.responseHandler.GinJSON(c, http.StatusOK, gin.H{
		"listings": listings,
		"count":    len(listings),
	})
}
