package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/database"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/health"
	listingRepository "github.com/lukeswagga/discord-auction-bot/internal/pkg/listing/repository"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper/brands"
	sniperHttp "github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper/delivery/http"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper/exchange"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper/publisher"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper/seen"
	sniperService "github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper/service"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/sniper/yahoo"
	"github.com/lukeswagga/discord-auction-bot/internal/scheduler"
	schedulerServices "github.com/lukeswagga/discord-auction-bot/internal/scheduler/services"
)

// SniperContainer holds the Yahoo sniper's dependencies
type SniperContainer struct {
	*Container

	// Pool is nil when no database is configured; cycle stats are then kept in memory only
	Pool       *database.Pool
	StatsStore listingRepository.ScrapeStatsRepository

	Brands    *brands.Watcher
	Rates     *exchange.Rates
	Fetcher   *yahoo.Fetcher
	Seen      *seen.Store
	Publisher *publisher.Publisher

	SniperService sniperService.SniperService
	SniperHandler *sniperHttp.SniperHandler

	CycleJob    *schedulerServices.SniperCycleJob
	BotProbeJob *schedulerServices.BotHealthProbeJob
	StoreJob    *schedulerServices.StoreHealthJob
}

// NewSniperContainer creates and initializes the sniper's dependencies
func NewSniperContainer(opts ContainerOptions) (*SniperContainer, error) {
	base, err := newContainer(opts)
	if err != nil {
		return nil, err
	}
	c := &SniperContainer{Container: base}

	var checkers []health.HealthChecker
	if err := c.initPool(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if c.Pool != nil {
		checkers = append(checkers, health.NewDatabaseHealthChecker(c.Pool, c.Logger))
	}

	if err := c.initSources(); err != nil {
		return nil, err
	}
	c.initService()
	c.initJobs()
	c.initHealth(c.Publisher.Status(), checkers...)

	c.Logger.Info("Sniper container initialized successfully",
		zap.Int("brands", c.Brands.Catalog().Len()),
		zap.Bool("publish", c.Config.UseDiscordBot),
		zap.String("bot_url", c.Config.BotURL))
	return c, nil
}

// initPool connects the stats store when a database is configured
func (c *SniperContainer) initPool() error {
	if c.Config.DBURL == "" {
		c.Logger.Info("Database not configured, scrape stats will not be persisted")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, c.Config, c.Logger)
	if err != nil {
		return err
	}

	c.Pool = pool
	c.StatsStore = listingRepository.NewScrapeStatsRepository(pool, c.Logger)
	c.addCloser(func() error {
		pool.Close()
		return nil
	})

	if c.Config.DBAutoMigrate {
		return database.Migrate(c.Config.MigrationsPath, c.Config.DBURL, c.Logger)
	}
	return nil
}

// initSources builds the catalog, rate, search and dedupe components
func (c *SniperContainer) initSources() error {
	watcher, err := brands.NewWatcher(c.Config.BrandsFile, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to load brands: %w", err)
	}
	c.Brands = watcher

	// Interfaces stay nil when Redis is off
	var (
		rateCache exchange.Cache
		seenSet   seen.SetStore
	)
	if c.Cache != nil {
		rateCache = c.Cache
		seenSet = c.Cache
	}

	c.Rates = exchange.NewRates(c.Config.ExchangeRateURL, rateCache, c.Metrics, c.Logger)
	c.Fetcher = yahoo.NewFetcher(yahoo.FetcherConfigFromConfig(c.Config), c.Metrics, c.Logger)

	c.Seen, err = seen.NewStore(seenSet, c.Config.SeenCacheSize, c.Logger)
	if err != nil {
		return err
	}

	c.Publisher = publisher.New(publisher.ConfigFromConfig(c.Config), c.Metrics, c.Logger)
	return nil
}

// initService wires the scrape cycle and its HTTP surface
func (c *SniperContainer) initService() {
	deps := sniperService.Deps{
		Catalog:   c.Brands,
		Searcher:  c.Fetcher,
		Rates:     c.Rates,
		Seen:      c.Seen,
		Publisher: c.Publisher,
		BotStatus: c.Publisher.Status(),
	}
	if c.StatsStore != nil {
		deps.Stats = c.StatsStore
	}
	if c.Cache != nil {
		deps.Counter = c.Cache
	}

	c.SniperService = sniperService.NewSniperService(deps, sniper.CycleConfigFromConfig(c.Config), c.Metrics, c.Logger)
	c.SniperHandler = sniperHttp.NewSniperHandler(c.SniperService, c.Brands, c.Logger)
}

// initJobs builds the scheduled jobs
func (c *SniperContainer) initJobs() {
	c.CycleJob = schedulerServices.NewSniperCycleJob(c.SniperService, c.Config.SniperCron, c.Config.SniperCycleTTL, c.Logger)
	c.BotProbeJob = schedulerServices.NewBotHealthProbeJob(c.Publisher, c.Logger)

	var (
		db    schedulerServices.StatsStore
		redis schedulerServices.Pinger
	)
	if c.Pool != nil {
		db = c.Pool
	}
	if c.Cache != nil {
		redis = c.Cache
	}
	c.StoreJob = schedulerServices.NewStoreHealthJob(db, redis, c.Logger, c.Metrics)
}

// Jobs returns the jobs to register with the scheduler
func (c *SniperContainer) Jobs() []scheduler.Job {
	jobs := []scheduler.Job{c.CycleJob}
	if c.Config.UseDiscordBot {
		jobs = append(jobs, c.BotProbeJob)
	}
	if c.Pool != nil || c.Cache != nil {
		jobs = append(jobs, c.StoreJob)
	}
	return jobs
}
