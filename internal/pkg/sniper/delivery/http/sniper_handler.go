package sniperHttp

import (
	"net/http"

	"github.com/gin-gonic/gin"

	sniperService "github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper/service"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/utils"
)

// SniperHandler serves the sniper's status endpoints
type SniperHandler struct {
	service         sniperService.SniperService
	catalog         sniperService.CatalogSource
	logger          *logger.Logger
	responseHandler *utils.ResponseHandler
}

// NewSniperHandler creates a new sniper handler
func NewSniperHandler(svc sniperService.SniperService, catalog sniperService.CatalogSource, log *logger.Logger) *SniperHandler {
	return &SniperHandler{
		service:         svc,
		catalog:         catalog,
		logger:          log.Named("sniper-handler"),
		responseHandler: utils.NewResponseHandler(log.Named("sniper-responses")),
	}
}

// RegisterGinRoutes registers the sniper routes
func (h *SniperHandler) RegisterGinRoutes(r gin.IRouter) {
	r.GET("/stats", h.GinStats)
	r.GET("/brands", h.GinBrands)
}

// GinStats reports the cycle counter and the latest cycle's stats
func (h *SniperHandler) GinStats(c *gin.Context) {
	h.responseHandler.GinJSON(c, http.StatusOK, h.service.Status(c.Request.Context()))
}

// GinBrands lists the brands currently being searched
func (h *SniperHandler) GinBrands(c *gin.Context) {
	brands := h.catalog.Catalog().Brands()
	h.responseHandler.GinJSON(c, http.StatusOK, gin.H{
		"brands": brands,
		"count":  len(brands),
	})
}
