package exchange

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/imroc/req/v3"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/cache"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/metrics"
)

const (
	// FallbackRate is used when no rate has ever been fetched
	FallbackRate = 150.0

	cacheTTL = time.Hour
	cacheKey = cache.KeyPrefixSniper + "usd_jpy"

	minSaneRate = 100.0
	maxSaneRate = 200.0
)

// Cache persists the last good rate across restarts
type Cache interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
}

type ratesResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Rates converts JPY prices to USD using a cached USD/JPY rate
type Rates struct {
	client  *req.Client
	url     string
	cache   Cache
	metrics *metrics.Metrics
	logger  *logger.Logger
	now     func() time.Time

	mu        sync.Mutex
	rate      float64
	fetchedAt time.Time
}

// NewRates creates a converter. cache may be nil.
func NewRates(url string, c Cache, m *metrics.Metrics, log *logger.Logger) *Rates {
	client := req.C().
		SetTimeout(10 * time.Second).
		SetCommonRetryCount(1)

	return &Rates{
		client:  client,
		url:     url,
		cache:   c,
		metrics: m,
		logger:  log.Named("exchange"),
		now:     time.Now,
	}
}

// Rate returns the USD/JPY rate, refreshing it at most once an hour
func (r *Rates) Rate(ctx context.Context) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rate > 0 && r.now().Sub(r.fetchedAt) < cacheTTL {
		return r.rate
	}

	if rate, ok := r.fromCache(ctx); ok {
		r.set(rate)
		return rate
	}

	rate, err := r.fetch(ctx)
	if err != nil {
		fallback := r.rate
		if fallback == 0 {
			fallback = FallbackRate
		}
		r.logger.Warn("Exchange rate fetch failed, using fallback",
			zap.Error(err), zap.Float64("rate", fallback))
		return fallback
	}

	r.set(rate)
	if r.cache != nil {
		if err := r.cache.SetString(ctx, cacheKey, strconv.FormatFloat(rate, 'f', -1, 64), cacheTTL); err != nil {
			r.logger.Warn("Failed to cache exchange rate", zap.Error(err))
		}
	}
	r.logger.Info("Exchange rate updated", zap.Float64("usd_jpy", rate))
	return rate
}

// ToUSD converts a yen amount, rounded to cents
func (r *Rates) ToUSD(ctx context.Context, jpy int64) float64 {
	return ToUSD(jpy, r.Rate(ctx))
}

// ToUSD converts a yen amount at rate, rounded to cents
func ToUSD(jpy int64, rate float64) float64 {
	if rate <= 0 {
		rate = FallbackRate
	}
	cents := int64(float64(jpy)/rate*100 + 0.5)
	return float64(cents) / 100
}

func (r *Rates) set(rate float64) {
	r.rate = rate
	r.fetchedAt = r.now()
	r.metrics.SetExchangeRate(rate)
}

func (r *Rates) fromCache(ctx context.Context) (float64, bool) {
	if r.cache == nil {
		return 0, false
	}
	raw, found, err := r.cache.GetString(ctx, cacheKey)
	if err != nil {
		r.logger.Warn("Failed to read cached exchange rate", zap.Error(err))
		return 0, false
	}
	if !found {
		return 0, false
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil || !sane(rate) {
		return 0, false
	}
	return rate, true
}

func (r *Rates) fetch(ctx context.Context) (float64, error) {
	var body ratesResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetSuccessResult(&body).
		Get(r.url)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch exchange rate: %w", err)
	}
	if resp.IsErrorState() {
		return 0, fmt.Errorf("exchange rate API returned %d", resp.StatusCode)
	}

	rate, ok := body.Rates["JPY"]
	if !ok {
		return 0, fmt.Errorf("exchange rate response has no JPY rate")
	}
	if !sane(rate) {
		return 0, fmt.Errorf("exchange rate %.2f outside expected range", rate)
	}
	return rate, nil
}

func sane(rate float64) bool {
	return rate > minSaneRate && rate < maxSaneRate
}
