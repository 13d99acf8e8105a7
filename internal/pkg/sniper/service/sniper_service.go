package sniperService

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lukeswagga/discord-auction-bot/internal/pkg/health"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper/brands"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper/exchange"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper/filter"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper/publisher"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper/yahoo"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/cache"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/metrics"
)

// CycleKey holds the persistent cycle counter
const CycleKey = cache.KeyPrefixSniper + "cycle"

// CatalogSource returns the current brand catalog
type CatalogSource interface {
	Catalog() *brands.Catalog
}

// Searcher runs a keyword search
type Searcher interface {
	Search(ctx context.Context, keyword string, maxPages int, rate float64) ([]yahoo.Item, error)
}

// RateSource supplies the USD/JPY rate
type RateSource interface {
	Rate(ctx context.Context) float64
}

// SeenStore remembers handled auction ids
type SeenStore interface {
	Seen(ctx context.Context, id string) bool
	Mark(ctx context.Context, ids ...string) error
	Reset(ctx context.Context) error
	Len() int
}

// Publisher hands a listing to the bot
type Publisher interface {
	Publish(ctx context.Context, l listing.Listing) error
}

// StatsStore persists per-cycle bookkeeping
type StatsStore interface {
	Record(ctx context.Context, s listing.ScrapeStats) error
	Latest(ctx context.Context) (*listing.ScrapeStats, error)
}

// Counter is a persistent increment-only counter
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// SniperService runs scrape cycles
type SniperService interface {
	RunCycle(ctx context.Context) (listing.ScrapeStats, error)
	Status(ctx context.Context) sniper.Status
}

// Deps groups the collaborators of the sniper service. Counter and Stats may
// be nil.
type Deps struct {
	Catalog   CatalogSource
	Searcher  Searcher
	Rates     RateSource
	Seen      SeenStore
	Publisher Publisher
	Stats     StatsStore
	Counter   Counter
	BotStatus health.Readiness
}

// DefaultSniperService is the standard SniperService
type DefaultSniperService struct {
	deps    Deps
	cfg     sniper.CycleConfig
	spam    *filter.SpamDetector
	metrics *metrics.Metrics
	logger  *logger.Logger
	now     func() time.Time

	cycle atomic.Int64

	mu   sync.RWMutex
	last *listing.ScrapeStats
}

// NewSniperService creates a new sniper service
func NewSniperService(deps Deps, cfg sniper.CycleConfig, m *metrics.Metrics, log *logger.Logger) *DefaultSniperService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	if cfg.KeywordsPerBrand <= 0 {
		cfg.KeywordsPerBrand = 1
	}
	if cfg.ResetSeenEvery <= 0 {
		cfg.ResetSeenEvery = sniper.ResetSeenEvery
	}

	return &DefaultSniperService{
		deps:    deps,
		cfg:     cfg,
		spam:    filter.NewSpamDetector(),
		metrics: m,
		logger:  log.Named("sniper-service"),
		now:     time.Now,
	}
}

type search struct {
	brand   brands.Brand
	keyword string
}

// tally is shared by the keyword workers of one cycle
type tally struct {
	found, filtered, sent, errors, searched atomic.Int64
}

// RunCycle searches every brand keyword, filters and publishes new listings
// and records the cycle's stats. A failing keyword is counted and skipped; only
// cancellation of ctx fails the cycle.
func (s *DefaultSniperService) RunCycle(ctx context.Context) (listing.ScrapeStats, error) {
	start := s.now()
	cycle := s.nextCycle(ctx)
	rate := s.deps.Rates.Rate(ctx)
	catalog := s.deps.Catalog.Catalog()

	var searches []search
	for _, b := range catalog.Brands() {
		for _, kw := range brands.Keywords(b, s.cfg.KeywordsPerBrand) {
			searches = append(searches, search{brand: b, keyword: kw})
		}
	}

	s.logger.Info("Cycle started",
		zap.Int64("cycle", cycle),
		zap.Int("brands", catalog.Len()),
		zap.Int("searches", len(searches)),
		zap.Float64("usd_jpy", rate))

	var (
		t       tally
		claimed sync.Map
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, sr := range searches {
		if gctx.Err() != nil {
			break
		}
		sr := sr
		g.Go(func() error {
			s.runSearch(gctx, catalog, sr, rate, &t, &claimed)
			return gctx.Err()
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	if cycle%s.cfg.ResetSeenEvery == 0 {
		if rerr := s.deps.Seen.Reset(ctx); rerr != nil {
			s.logger.Warn("Failed to reset seen ids", zap.Error(rerr))
		}
	}

	stats := listing.ScrapeStats{
		Timestamp:        start.UTC(),
		TotalFound:       int(t.found.Load()),
		QualityFiltered:  int(t.filtered.Load()),
		SentToDiscord:    int(t.sent.Load()),
		ErrorsCount:      int(t.errors.Load()),
		KeywordsSearched: int(t.searched.Load()),
	}
	s.finish(ctx, cycle, stats, s.now().Sub(start), err)

	return stats, err
}

func (s *DefaultSniperService) runSearch(ctx context.Context, catalog *brands.Catalog, sr search, rate float64, t *tally, claimed *sync.Map) {
	items, err := s.deps.Searcher.Search(ctx, sr.keyword, s.cfg.MaxPages, rate)
	t.searched.Add(1)
	if err != nil {
		t.errors.Add(1)
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("Keyword search failed", zap.String("keyword", sr.keyword), zap.Error(err))
		}
		return
	}
	t.found.Add(int64(len(items)))

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		if _, dup := claimed.LoadOrStore(item.AuctionID, struct{}{}); dup {
			continue
		}
		if s.deps.Seen.Seen(ctx, item.AuctionID) {
			continue
		}

		l, ok := s.evaluate(catalog, sr.brand, item, rate)
		if !ok {
			s.markSeen(ctx, item.AuctionID)
			continue
		}
		t.filtered.Add(1)

		if !s.cfg.Publish || s.deps.Publisher == nil {
			continue
		}

		switch err := s.deps.Publisher.Publish(ctx, l); {
		case err == nil:
			t.sent.Add(1)
			s.markSeen(ctx, l.AuctionID)
			s.logger.Info("Listing sent",
				zap.String("auction_id", l.AuctionID),
				zap.String("brand", l.Brand),
				zap.Int64("price_jpy", l.PriceJPY),
				zap.Float64("priority", l.Priority))
		case errors.Is(err, publisher.ErrDuplicate):
			s.markSeen(ctx, l.AuctionID)
		default:
			t.errors.Add(1)
			s.logger.Warn("Publish failed", zap.String("auction_id", l.AuctionID), zap.Error(err))
		}
	}
}

// evaluate applies the spam and quality rules and builds the listing
func (s *DefaultSniperService) evaluate(catalog *brands.Catalog, searched brands.Brand, item yahoo.Item, rate float64) (listing.Listing, bool) {
	brand := catalog.Detect(item.Title)
	if brand == brands.Unknown {
		brand = searched.Name
	}

	if spam, reason := s.spam.IsSpam(item.Title, brand); spam {
		s.logger.Debug("Spam filtered", zap.String("auction_id", item.AuctionID), zap.String("reason", reason))
		return listing.Listing{}, false
	}

	priceUSD := exchange.ToUSD(item.PriceJPY, rate)
	ok, quality := filter.IsQuality(priceUSD, brand, item.Title, s.cfg.Thresholds)
	if !ok {
		return listing.Listing{}, false
	}

	return listing.Listing{
		AuctionID:    item.AuctionID,
		Title:        item.Title,
		Brand:        brand,
		PriceJPY:     item.PriceJPY,
		PriceUSD:     priceUSD,
		SellerID:     "unknown",
		ZenmarketURL: listing.ProxyURL(s.cfg.ProxyService, item.AuctionID),
		YahooURL:     item.YahooURL,
		ImageURL:     item.ImageURL,
		DealQuality:  quality,
		Priority:     filter.PriorityScore(priceUSD, brand, item.Title, quality),
		Sizes:        filter.ExtractSizes(item.Title),
		IsNewListing: true,
	}, true
}

func (s *DefaultSniperService) markSeen(ctx context.Context, id string) {
	if err := s.deps.Seen.Mark(ctx, id); err != nil {
		s.logger.Warn("Failed to mark seen", zap.String("auction_id", id), zap.Error(err))
	}
}

// nextCycle advances the persistent counter, falling back to the in-process
// count when Redis is unavailable
func (s *DefaultSniperService) nextCycle(ctx context.Context) int64 {
	if s.deps.Counter != nil {
		n, err := s.deps.Counter.Incr(ctx, CycleKey)
		if err == nil {
			s.cycle.Store(n)
			return n
		}
		s.logger.Warn("Cycle counter unavailable", zap.Error(err))
	}
	return s.cycle.Add(1)
}

func (s *DefaultSniperService) finish(ctx context.Context, cycle int64, stats listing.ScrapeStats, took time.Duration, err error) {
	s.mu.Lock()
	s.last = &stats
	s.mu.Unlock()

	if s.deps.Stats != nil {
		// record even when the cycle was cut short
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if rerr := s.deps.Stats.Record(recordCtx, stats); rerr != nil {
			s.logger.Warn("Failed to record scrape stats", zap.Error(rerr))
		}
		cancel()
	}

	s.metrics.RecordScrapeCycle(took, err)
	s.metrics.AddScrapeListings("found", stats.TotalFound)
	s.metrics.AddScrapeListings("filtered", stats.QualityFiltered)
	s.metrics.AddScrapeListings("published", stats.SentToDiscord)

	s.logger.Info("Cycle complete",
		zap.Int64("cycle", cycle),
		zap.Duration("duration", took),
		zap.Int("searched", stats.KeywordsSearched),
		zap.Int("found", stats.TotalFound),
		zap.Int("quality_filtered", stats.QualityFiltered),
		zap.Int("sent", stats.SentToDiscord),
		zap.Int("errors", stats.ErrorsCount),
		zap.Error(err))
}

// Status reports the cycle counter and the most recent cycle's stats
func (s *DefaultSniperService) Status(ctx context.Context) sniper.Status {
	st := sniper.Status{
		Cycle:   s.cycle.Load(),
		Brands:  s.deps.Catalog.Catalog().Len(),
		SeenIDs: s.deps.Seen.Len(),
	}
	if s.deps.BotStatus != nil {
		st.BotReady = s.deps.BotStatus.Ready()
	}

	s.mu.RLock()
	st.LastCycle = s.last
	s.mu.RUnlock()

	if st.LastCycle == nil && s.deps.Stats != nil {
		latest, err := s.deps.Stats.Latest(ctx)
		if err != nil {
			s.logger.Warn("Failed to load latest scrape stats", zap.Error(err))
		}
		st.LastCycle = latest
	}
	return st
}
