package sniper

import (
	"github.com/lukeswagga/discord-auction-bot/internal/app/config"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper/filter"
)

// ResetSeenEvery is how many cycles pass between seen-id purges, so relisted
// auctions come back
const ResetSeenEvery = 25

// CycleConfig tunes one scrape cycle
type CycleConfig struct {
	KeywordsPerBrand int
	MaxPages         int
	Concurrency      int
	Thresholds       filter.Thresholds
	ProxyService     string
	Publish          bool
	ResetSeenEvery   int64
}

// CycleConfigFromConfig builds a CycleConfig from the application config
func CycleConfigFromConfig(cfg *config.Config) CycleConfig {
	return CycleConfig{
		KeywordsPerBrand: cfg.SniperKeywords,
		MaxPages:         cfg.SniperMaxPages,
		Concurrency:      cfg.SniperConcurrency,
		Thresholds: filter.Thresholds{
			MinPriceUSD: cfg.MinPriceUSD,
			MaxPriceUSD: cfg.MaxPriceUSD,
			MinQuality:  cfg.QualityThreshold,
		},
		ProxyService:   cfg.ProxyService,
		Publish:        cfg.UseDiscordBot,
		ResetSeenEvery: ResetSeenEvery,
	}
}

// Status is the body of the sniper's GET /stats
type Status struct {
	Cycle     int64                `json:"cycle"`
	Brands    int                  `json:"brands"`
	SeenIDs   int                  `json:"seen_ids"`
	BotReady  bool                 `json:"bot_ready"`
	LastCycle *listing.ScrapeStats `json:"last_cycle"`
}
