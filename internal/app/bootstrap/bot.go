package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/lukeswagga/discord-auction-bot/internal/database"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/bot"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/health"
	listingHttp "github.com/lukeswagga/discord-auction-bot/internal/pkg/listing/delivery/http"
	listingRepository "github.com/lukeswagga/discord-auction-bot/internal/pkg/listing/repository"
	listingService "github.com/lukeswagga/discord-auction-bot/internal/pkg/listing/service"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/middleware"
)

// BotContainer holds the Discord bot's dependencies
type BotContainer struct {
	*Container

	Database *database.Database

	// Discord
	State      *bot.State
	Client     *bot.Client
	Dispatcher *bot.Dispatcher
	Batcher    *bot.Batcher
	Runner     *bot.Runner

	// Listings
	ListingRepository listingRepository.ListingRepository
	ListingService    listingService.ListingService
	ListingHandler    *listingHttp.ListingHandler

	WebhookAuthMiddleware *middleware.WebhookAuthMiddleware
}

// NewBotContainer creates and initializes the bot's dependencies
func NewBotContainer(opts ContainerOptions) (*BotContainer, error) {
	base, err := newContainer(opts)
	if err != nil {
		return nil, err
	}
	c := &BotContainer{Container: base}

	if err := c.Config.ValidateDiscord(); err != nil {
		return nil, fmt.Errorf("invalid discord configuration: %w", err)
	}

	if err := c.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	c.initBot()
	c.initListings()
	c.initHealth(c.State, health.NewDatabaseHealthChecker(c.Database, c.Logger))

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("container validation failed: %w", err)
	}

	c.Logger.Info("Bot container initialized successfully")
	return c, nil
}

// initDatabase connects the listing store
func (c *BotContainer) initDatabase() error {
	if c.Config.DBURL == "" {
		return fmt.Errorf("db_url is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, database.DefaultConfig(c.Config), c.Logger, c.Metrics)
	if err != nil {
		return err
	}

	c.Database = db
	c.addCloser(db.Close)

	// The connection above already waited for Postgres to come up
	if c.Config.DBAutoMigrate {
		if err := database.Migrate(c.Config.MigrationsPath, c.Config.DBURL, c.Logger); err != nil {
			return err
		}
	}
	return nil
}

// initBot wires the Discord client into the batching delivery loop
func (c *BotContainer) initBot() {
	c.State = bot.NewState(c.Metrics)
	c.ListingRepository = listingRepository.NewListingRepository(c.Database, c.Logger)

	var (
		sender    bot.Sender
		connector bot.Connector
	)
	if c.Config.DiscordEnabled {
		c.Client = bot.NewClient(bot.ClientConfigFromConfig(c.Config), c.State, c.Logger)
		sender = c.Client
		connector = c.Client
	} else {
		// Listings are still stored; the webhook reports the bot as ready
		c.State.SetReady(true)
		c.State.SetGuildConnected(true)
	}

	c.Dispatcher = bot.NewDispatcher(sender, bot.ChannelsFromConfig(c.Config), c.Logger)
	c.Batcher = bot.NewBatcher(bot.BatcherConfigFromConfig(c.Config), c.Dispatcher, c.ListingRepository, c.Metrics, c.Logger)
	c.Runner = bot.NewRunner(connector, c.Batcher, c.Config.DiscordConnectRetry, c.Logger)
}

// initListings wires the webhook API
func (c *BotContainer) initListings() {
	c.ListingService = listingService.NewListingService(c.ListingRepository, c.Batcher, c.State, c.Metrics, c.Logger)
	c.ListingHandler = listingHttp.NewListingHandler(c.ListingService, c.Logger)
	c.WebhookAuthMiddleware = middleware.NewWebhookAuthMiddleware(c.Config.WebhookSecret, c.Config.WebhookIssuer, c.Logger)
}

// validate performs validation on the container dependencies
func (c *BotContainer) validate() error {
	if c.Database == nil {
		return fmt.Errorf("database is nil")
	}
	if c.Batcher == nil {
		return fmt.Errorf("batcher is nil")
	}
	if c.ListingService == nil {
		return fmt.Errorf("listing service is nil")
	}
	if c.HealthService == nil {
		return fmt.Errorf("health service is nil")
	}
	return nil
}
