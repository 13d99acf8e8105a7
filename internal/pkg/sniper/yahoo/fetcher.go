package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/imroc/req/v3"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/app/config"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/metrics"
)

const (
	// PageSize is the number of results Yahoo returns per search page
	PageSize = 50

	maxConsecutiveErrors = 3
	userAgent            = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Item is one auction scraped from a search page
type Item struct {
	AuctionID string
	Title     string
	PriceJPY  int64
	ImageURL  string
	YahooURL  string
}

// FetcherConfig holds the search settings
type FetcherConfig struct {
	SearchURL   string
	MinPriceUSD float64
	MaxPriceUSD float64
	Timeout     time.Duration
}

// FetcherConfigFromConfig builds a FetcherConfig from the application config
func FetcherConfigFromConfig(cfg *config.Config) FetcherConfig {
	return FetcherConfig{
		SearchURL:   cfg.YahooSearchURL,
		MinPriceUSD: cfg.MinPriceUSD,
		MaxPriceUSD: cfg.MaxPriceUSD,
		Timeout:     15 * time.Second,
	}
}

// Fetcher searches Yahoo Auctions Japan
type Fetcher struct {
	client  *req.Client
	cfg     FetcherConfig
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewFetcher creates a new search fetcher
func NewFetcher(cfg FetcherConfig, m *metrics.Metrics, log *logger.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	client := req.C().
		SetTimeout(cfg.Timeout).
		SetUserAgent(userAgent).
		SetCommonHeader("Accept-Language", "ja,en;q=0.8").
		SetCommonRetryCount(1).
		SetCommonRetryBackoffInterval(time.Second, 3*time.Second)

	return &Fetcher{
		client:  client,
		cfg:     cfg,
		metrics: m,
		logger:  log.Named("yahoo"),
	}
}

// SearchURL builds the search URL for a keyword and 1-based page, with the
// USD price window converted to yen at rate
func (f *Fetcher) SearchURL(keyword string, page int, rate float64) string {
	if page < 1 {
		page = 1
	}

	q := url.Values{}
	q.Set("p", keyword)
	q.Set("tab_ex", "commerce")
	q.Set("ei", "utf-8")
	q.Set("b", strconv.Itoa((page-1)*PageSize+1))
	q.Set("n", strconv.Itoa(PageSize))
	q.Set("auccat", "0")
	q.Set("aucminprice", strconv.Itoa(int(f.cfg.MinPriceUSD*rate)))
	q.Set("aucmaxprice", strconv.Itoa(int(f.cfg.MaxPriceUSD*rate)))
	q.Set("sort", "end")
	q.Set("order", "a")

	return f.cfg.SearchURL + "?" + q.Encode()
}

// Search fetches up to maxPages pages for keyword. It stops early on an empty
// page or after three consecutive page errors, and only fails when no page
// could be read.
func (f *Fetcher) Search(ctx context.Context, keyword string, maxPages int, rate float64) ([]Item, error) {
	var (
		items       []Item
		consecutive int
		succeeded   int
		lastErr     error
	)

	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		pageItems, err := f.fetchPage(ctx, f.SearchURL(keyword, page, rate))
		f.metrics.RecordYahooRequest(err)
		if err != nil {
			lastErr = err
			consecutive++
			f.logger.Warn("Search page failed",
				zap.String("keyword", keyword), zap.Int("page", page), zap.Error(err))
			if consecutive >= maxConsecutiveErrors {
				break
			}
			continue
		}

		consecutive = 0
		succeeded++
		items = append(items, pageItems...)
		if len(pageItems) == 0 {
			break
		}
	}

	if succeeded == 0 && lastErr != nil {
		return nil, fmt.Errorf("search %q failed: %w", keyword, lastErr)
	}

	f.logger.Debug("Search complete", zap.String("keyword", keyword), zap.Int("items", len(items)))
	return items, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, pageURL string) ([]Item, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsErrorState() {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return Parse(resp.Bytes())
}
