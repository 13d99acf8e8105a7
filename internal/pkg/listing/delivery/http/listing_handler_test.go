package listingHttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
	listingService "github.com/lukeswagga/discord-auction-bot/internal/pkg/listing/service"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/middleware"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/utils"
)

type stubService struct {
	ingestErr  error
	existsErr  error
	exists     bool
	recent     []listing.Listing
	recentArg  int
	lastIngest *listing.WebhookRequest
}

func (s *stubService) Ingest(_ context.Context, req *listing.WebhookRequest) (*listingService.QueuedResponse, error) {
	s.lastIngest = req
	if s.ingestErr != nil {
		return nil, s.ingestErr
	}
	return &listingService.QueuedResponse{Status: "queued", BufferSize: 1, AuctionID: req.AuctionID}, nil
}

func (s *stubService) IsDuplicate(context.Context, string) (bool, error) {
	return s.exists, s.existsErr
}

func (s *stubService) Stats(context.Context) (listing.Stats, error) {
	return listing.Stats{TotalListings: 3, TotalReactions: 2, ActiveUsers: 1, BufferSize: 4}, nil
}

func (s *stubService) Recent(_ context.Context, limit int) ([]listing.Listing, error) {
	s.recentArg = limit
	return s.recent, nil
}

func (s *stubService) BotHealth() listingService.BotHealth {
	return listingService.BotHealth{BotReady: true, GuildConnected: true, BufferSize: 4}
}

func setupRouter(svc listingService.ListingService, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := middleware.NewWebhookAuthMiddleware(secret, "", logger.NewNop())
	noLimit := func(c *gin.Context) { c.Next() }
	NewListingHandler(svc, logger.NewNop()).RegisterGinRoutes(r, auth, noLimit)
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

const validBody = `{"auction_id":"x100000001","title":"Helmut Lang jacket","brand":"Helmut Lang",
	"price_jpy":8000,"price_usd":53.33,"zenmarket_url":"https://zenmarket.jp/en/auction.aspx?itemCode=x100000001",
	"deal_quality":0.4,"priority":55}`

func TestWebhook(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		ingestErr  error
		wantStatus int
		wantError  string
	}{
		{name: "queued", path: "/webhook/listing", body: validBody, wantStatus: http.StatusOK},
		{name: "legacy path", path: "/webhook", body: validBody, wantStatus: http.StatusOK},
		{name: "empty body", path: "/webhook/listing", body: "", wantStatus: http.StatusBadRequest, wantError: "No data"},
		{name: "not json", path: "/webhook/listing", body: "{", wantStatus: http.StatusBadRequest, wantError: "No data"},
		{
			name:       "invalid listing",
			path:       "/webhook/listing",
			body:       validBody,
			ingestErr:  listing.ErrInvalidListing,
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing required fields",
		},
		{
			name:       "duplicate",
			path:       "/webhook/listing",
			body:       validBody,
			ingestErr:  listing.ErrDuplicateListing,
			wantStatus: http.StatusConflict,
			wantError:  "listing already posted",
		},
		{
			name:       "store failure",
			path:       "/webhook/listing",
			body:       validBody,
			ingestErr:  errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{ingestErr: tt.ingestErr}
			r := setupRouter(svc, "")

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
				return
			}
			assert.Equal(t, "queued", body["status"])
			assert.Equal(t, "x100000001", body["auction_id"])
			require.NotNil(t, svc.lastIngest)
			require.NotNil(t, svc.lastIngest.PriceJPY)
			assert.Equal(t, int64(8000), *svc.lastIngest.PriceJPY)
		})
	}
}

func TestWebhookRequiresTokenWhenConfigured(t *testing.T) {
	const secret = "webhook-secret"
	r := setupRouter(&stubService{}, secret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/listing", strings.NewReader(validBody))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := utils.SignWebhookToken(secret, "", time.Minute, time.Now())
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/webhook/listing", strings.NewReader(validBody))
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookHealth(t *testing.T) {
	r := setupRouter(&stubService{}, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["bot_ready"])
	assert.Equal(t, true, body["guild_connected"])
	assert.Equal(t, float64(4), body["buffer_size"])
}

func TestCheckDuplicate(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		r := setupRouter(&stubService{exists: true}, "")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/check_duplicate/x100000001", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, true, body["exists"])
		assert.Equal(t, "x100000001", body["auction_id"])
	})

	t.Run("store failure", func(t *testing.T) {
		r := setupRouter(&stubService{existsErr: errors.New("connection refused")}, "")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/check_duplicate/x100000001", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, false, body["exists"])
		assert.Equal(t, "connection refused", body["error"])
	})
}

func TestStats(t *testing.T) {
	r := setupRouter(&stubService{}, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(3), body["total_listings"])
	assert.Equal(t, float64(2), body["total_reactions"])
	assert.Equal(t, float64(1), body["active_users"])
	assert.Equal(t, float64(4), body["buffer_size"])
}

func TestRecent(t *testing.T) {
	svc := &stubService{recent: []listing.Listing{{AuctionID: "x1"}, {AuctionID: "x2"}}}
	r := setupRouter(svc, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/listings/recent?limit=5", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, svc.recentArg)
	assert.Equal(t, float64(2), decode(t, w)["count"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/listings/recent?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
