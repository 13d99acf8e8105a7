package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/cache"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// RateLimitConfig holds the configuration for rate limiting
type RateLimitConfig struct {
	// MaxAttempts is the number of requests allowed per window
	MaxAttempts int
	Window      time.Duration
	KeyPrefix   string
	// SkipPaths are path prefixes that are never limited
	SkipPaths []string
	BurstSize int
}

// DefaultRateLimitConfig limits unauthenticated webhook senders
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		MaxAttempts: 300,
		Window:      time.Minute,
		KeyPrefix:   cache.KeyPrefixRateLimit + "webhook",
		SkipPaths:   []string{"/health", "/ready", "/metrics"},
		BurstSize:   50,
	}
}

// RateLimiterStorage defines the interface for rate limiting storage backends
type RateLimiterStorage interface {
	// Increment increments the counter for key and returns the new count
	Increment(ctx context.Context, key string, window time.Duration) (int, error)
	Name() string
}

// RedisRateLimiter implements RateLimiterStorage using Redis
type RedisRateLimiter struct {
	client *cache.Redis
	logger *logger.Logger
}

// NewRedisRateLimiter creates a new Redis-based rate limiter
func NewRedisRateLimiter(client *cache.Redis, log *logger.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		logger: log.Named("redis-rate-limiter"),
	}
}

// Increment bumps the counter; the first hit in a window starts its expiry
func (r *RedisRateLimiter) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		r.logger.Error("Failed to increment rate limit counter", zap.String("key", key), zap.Error(err))
		return 0, err
	}

	if count == 1 {
		if err := r.client.Client.Expire(ctx, key, window).Err(); err != nil {
			r.logger.Error("Failed to set rate limit window", zap.String("key", key), zap.Error(err))
			return 0, err
		}
	}

	return int(count), nil
}

// Name identifies the backend
func (r *RedisRateLimiter) Name() string { return "redis" }

// InMemoryRateLimiter implements RateLimiterStorage in process memory
type InMemoryRateLimiter struct {
	mu      sync.Mutex
	data    map[string]*rateLimitEntry
	now     func() time.Time
	sweepAt time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// NewInMemoryRateLimiter creates a new in-memory rate limiter
func NewInMemoryRateLimiter() *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		data: make(map[string]*rateLimitEntry),
		now:  time.Now,
	}
}

// Increment increments the counter for the given key
func (m *InMemoryRateLimiter) Increment(_ context.Context, key string, window time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	entry, ok := m.data[key]
	if !ok || now.After(entry.expiresAt) {
		m.data[key] = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
		return 1, nil
	}

	entry.count++
	return entry.count, nil
}

// sweep drops expired entries at most once a minute. Caller holds mu.
func (m *InMemoryRateLimiter) sweep(now time.Time) {
	if now.Before(m.sweepAt) {
		return
	}
	for key, entry := range m.data {
		if now.After(entry.expiresAt) {
			delete(m.data, key)
		}
	}
	m.sweepAt = now.Add(time.Minute)
}

// Name identifies the backend
func (m *InMemoryRateLimiter) Name() string { return "memory" }

// RateLimitMiddleware provides rate limiting functionality
type RateLimitMiddleware struct {
	config  *RateLimitConfig
	storage RateLimiterStorage
	logger  *logger.Logger
}

// NewRateLimitMiddleware uses Redis when it is available and falls back to memory
func NewRateLimitMiddleware(cfg *RateLimitConfig, redisClient *cache.Redis, log *logger.Logger) *RateLimitMiddleware {
	log = log.Named("rate-limit")

	var storage RateLimiterStorage
	if redisClient != nil {
		storage = NewRedisRateLimiter(redisClient, log)
	} else {
		log.Info("Redis not configured, using in-memory storage for rate limiting")
		storage = NewInMemoryRateLimiter()
	}

	return NewRateLimitMiddlewareWithStorage(cfg, storage, log)
}

// NewRateLimitMiddlewareWithStorage creates a rate limiter over an explicit backend
func NewRateLimitMiddlewareWithStorage(cfg *RateLimitConfig, storage RateLimiterStorage, log *logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		config:  cfg,
		storage: storage,
		logger:  log,
	}
}

// GinRateLimit returns a Gin middleware function for rate limiting
func (m *RateLimitMiddleware) GinRateLimit() gin.HandlerFunc {
	limit := m.config.MaxAttempts + m.config.BurstSize

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if m.shouldSkipPath(path) || authenticatedSender(c) {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		key := fmt.Sprintf("%s:%s", m.config.KeyPrefix, clientIP)

		count, err := m.storage.Increment(c.Request.Context(), key, m.config.Window)
		if err != nil {
			// Fail open: a broken limiter must not drop listings
			m.logger.Error("Failed to check rate limit", zap.Error(err))
			c.Next()
			return
		}

		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > limit {
			m.logger.Warn("Rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.String("path", path),
				zap.String("request_id", c.GetString("request_id")),
				zap.Int("count", count),
				zap.Int("limit", limit),
			)

			c.Header("Retry-After", strconv.Itoa(int(m.config.Window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Next()
	}
}

// authenticatedSender reports whether WebhookAuthMiddleware verified the
// caller's token. Verified senders are not limited.
func authenticatedSender(c *gin.Context) bool {
	_, ok := c.Request.Context().Value(WebhookIssuerKey).(string)
	return ok
}

func (m *RateLimitMiddleware) shouldSkipPath(path string) bool {
	for _, skip := range m.config.SkipPaths {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}
	return false
}

// StorageType returns the name of the active backend
func (m *RateLimitMiddleware) StorageType() string {
	return m.storage.Name()
}
