package sniperHttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper/brands"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

type stubService struct {
	status sniper.Status
}

func (s *stubService) RunCycle(context.Context) (listing.ScrapeStats, error) {
	return listing.ScrapeStats{}, nil
}

func (s *stubService) Status(context.Context) sniper.Status { return s.status }

type staticCatalog struct{ c *brands.Catalog }

func (s staticCatalog) Catalog() *brands.Catalog { return s.c }

func setupRouter(t *testing.T, svc *stubService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c, err := brands.Parse([]byte(`{"Rick Owens": {"variants": ["rick owens", "drkshdw"]}}`))
	require.NoError(t, err)

	r := gin.New()
	NewSniperHandler(svc, staticCatalog{c}, logger.NewNop()).RegisterGinRoutes(r)
	return r
}

func TestStats(t *testing.T) {
	svc := &stubService{status: sniper.Status{
		Cycle:     12,
		Brands:    1,
		SeenIDs:   40,
		BotReady:  true,
		LastCycle: &listing.ScrapeStats{TotalFound: 30, QualityFiltered: 4, SentToDiscord: 3},
	}}
	r := setupRouter(t, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 12.0, body["cycle"])
	assert.Equal(t, true, body["bot_ready"])
	last := body["last_cycle"].(map[string]any)
	assert.Equal(t, 3.0, last["sent_to_discord"])
}

func TestStatsBeforeFirstCycle(t *testing.T) {
	r := setupRouter(t, &stubService{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"last_cycle":null`)
}

func TestBrands(t *testing.T) {
	r := setupRouter(t, &stubService{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/brands", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Brands []brands.Brand `json:"brands"`
		Count  int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "Rick Owens", body.Brands[0].Name)
	assert.Equal(t, []string{"rick owens", "drkshdw"}, body.Brands[0].Variants)
}
