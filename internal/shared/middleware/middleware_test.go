package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/utils"
)

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.POST("/webhook", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	return r
}

func TestWebhookAuthMiddleware(t *testing.T) {
	valid, err := utils.SignWebhookToken("s3cret", "yahoo-sniper", time.Minute, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name           string
		secret         string
		header         string
		expectedStatus int
	}{
		{name: "disabled without secret", secret: "", header: "", expectedStatus: http.StatusOK},
		{name: "missing header", secret: "s3cret", header: "", expectedStatus: http.StatusUnauthorized},
		{name: "wrong scheme", secret: "s3cret", header: "Basic " + valid, expectedStatus: http.StatusUnauthorized},
		{name: "bad token", secret: "s3cret", header: "Bearer nope", expectedStatus: http.StatusUnauthorized},
		{name: "valid token", secret: "s3cret", header: "Bearer " + valid, expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewWebhookAuthMiddleware(tt.secret, "yahoo-sniper", logger.NewNop())
			r := newTestRouter(auth.GinAuthenticate)

			req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestRateLimitMiddlewareInMemory(t *testing.T) {
	cfg := &RateLimitConfig{
		MaxAttempts: 2,
		Window:      time.Minute,
		KeyPrefix:   "test",
		SkipPaths:   []string{"/health"},
		BurstSize:   1,
	}
	rl := NewRateLimitMiddleware(cfg, nil, logger.NewNop())
	assert.Equal(t, "memory", rl.StorageType())

	r := newTestRouter(rl.GinRateLimit())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", nil))
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// Skipped paths are never limited
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddlewareSkipsVerifiedSenders(t *testing.T) {
	cfg := &RateLimitConfig{MaxAttempts: 1, Window: time.Minute, KeyPrefix: "test"}
	rl := NewRateLimitMiddleware(cfg, nil, logger.NewNop())

	token, err := utils.SignWebhookToken("s3cret", "yahoo-sniper", time.Minute, time.Now())
	require.NoError(t, err)

	verified := newTestRouter(NewWebhookAuthMiddleware("s3cret", "yahoo-sniper", logger.NewNop()).GinAuthenticate, rl.GinRateLimit())
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		verified.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	// without a secret nothing is verified, so the limit applies
	anonymous := newTestRouter(NewWebhookAuthMiddleware("", "", logger.NewNop()).GinAuthenticate, rl.GinRateLimit())
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		anonymous.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

type failingStorage struct{}

func (failingStorage) Increment(context.Context, string, time.Duration) (int, error) {
	return 0, errors.New("storage down")
}

func (failingStorage) Name() string { return "failing" }

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	rl := NewRateLimitMiddlewareWithStorage(DefaultRateLimitConfig(), failingStorage{}, logger.NewNop())
	r := newTestRouter(rl.GinRateLimit())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInMemoryRateLimiterWindowResets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := NewInMemoryRateLimiter()
	m.now = func() time.Time { return now }

	n, err := m.Increment(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, _ = m.Increment(context.Background(), "k", time.Minute)
	assert.Equal(t, 2, n)

	now = now.Add(2 * time.Minute)
	n, _ = m.Increment(context.Background(), "k", time.Minute)
	assert.Equal(t, 1, n)
}

func TestRequestIDMiddleware(t *testing.T) {
	rid := NewRequestIDMiddleware(logger.NewNop())
	r := newTestRouter(rid.Middleware())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Contains(t, w.Header().Get(RequestIDHeader), "req-")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "given-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "given-id", w.Header().Get(RequestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	rec := NewRecoveryMiddleware(logger.NewNop())
	r := newTestRouter(rec.GinRecover)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	prod := NewSecurityMiddleware(logger.NewNop(), false)
	r := newTestRouter(prod.GinSecurityHeaders)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=31536000")

	dev := NewSecurityMiddleware(logger.NewNop(), true)
	_, hasHSTS := dev.GetSecurityHeaders()["Strict-Transport-Security"]
	assert.False(t, hasHSTS)
}
