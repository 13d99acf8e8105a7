package listingService

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
	listingRepository "github.com/lukeswagga/discord-auction-bot/internal/pkg/listing/repository"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/metrics"
)

// Queue buffers listings until the delivery loop flushes them
type Queue interface {
	// Enqueue adds l and returns the new buffer size; ok is false when the
	// auction is already waiting in the buffer
	Enqueue(l listing.Listing) (size int, ok bool)
	Len() int
}

// BotStatus exposes the Discord connection flags
type BotStatus interface {
	Ready() bool
	GuildConnected() bool
}

// QueuedResponse is the body returned for an accepted webhook
type QueuedResponse struct {
	Status     string `json:"status"`
	BufferSize int    `json:"buffer_size"`
	AuctionID  string `json:"auction_id"`
}

// BotHealth is the body of GET /webhook/health
type BotHealth struct {
	BotReady       bool `json:"bot_ready"`
	GuildConnected bool `json:"guild_connected"`
	BufferSize     int  `json:"buffer_size"`
}

// ListingService defines the operations behind the bot's webhook API
type ListingService interface {
	Ingest(ctx context.Context, req *listing.WebhookRequest) (*QueuedResponse, error)
	IsDuplicate(ctx context.Context, auctionID string) (bool, error)
	Stats(ctx context.Context) (listing.Stats, error)
	Recent(ctx context.Context, limit int) ([]listing.Listing, error)
	BotHealth() BotHealth
}

// DefaultListingService is the default implementation of ListingService
type DefaultListingService struct {
	repo    listingRepository.ListingRepository
	queue   Queue
	bot     BotStatus
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewListingService creates a new listing service
func NewListingService(repo listingRepository.ListingRepository, queue Queue, bot BotStatus, m *metrics.Metrics, log *logger.Logger) *DefaultListingService {
	return &DefaultListingService{
		repo:    repo,
		queue:   queue,
		bot:     bot,
		metrics: m,
		logger:  log.Named("listing-service"),
	}
}

// Ingest validates a webhook listing, rejects ones already delivered and buffers the rest
func (s *DefaultListingService) Ingest(ctx context.Context, req *listing.WebhookRequest) (*QueuedResponse, error) {
	if err := req.Validate(); err != nil {
		s.metrics.RecordListingReceived("invalid")
		return nil, fmt.Errorf("%w: %v", listing.ErrInvalidListing, err)
	}
	l := req.ToListing()

	exists, err := s.repo.Exists(ctx, l.AuctionID)
	if err != nil {
		s.metrics.RecordListingReceived("error")
		return nil, err
	}
	if exists {
		s.metrics.RecordListingReceived("duplicate")
		return nil, listing.ErrDuplicateListing
	}

	size, ok := s.queue.Enqueue(l)
	if !ok {
		s.metrics.RecordListingReceived("duplicate")
		return nil, listing.ErrDuplicateListing
	}

	s.metrics.RecordListingReceived("queued")
	s.logger.Info("Listing queued",
		zap.String("auction_id", l.AuctionID),
		zap.String("brand", l.Brand),
		zap.Int("buffer_size", size))

	return &QueuedResponse{
		Status:     "queued",
		BufferSize: size,
		AuctionID:  l.AuctionID,
	}, nil
}

// IsDuplicate reports whether the auction is already stored
func (s *DefaultListingService) IsDuplicate(ctx context.Context, auctionID string) (bool, error) {
	return s.repo.Exists(ctx, auctionID)
}

// Stats returns store totals plus the current buffer size
func (s *DefaultListingService) Stats(ctx context.Context) (listing.Stats, error) {
	stats, err := s.repo.Counts(ctx)
	if err != nil {
		return listing.Stats{}, err
	}
	stats.BufferSize = s.queue.Len()
	return stats, nil
}

// Recent returns the newest listings, clamping limit to 1..100
func (s *DefaultListingService) Recent(ctx context.Context, limit int) ([]listing.Listing, error) {
	switch {
	case limit <= 0:
		limit = 20
	case limit > 100:
		limit = 100
	}
	return s.repo.Recent(ctx, limit)
}

// BotHealth reports the Discord connection flags and the buffer size
func (s *DefaultListingService) BotHealth() BotHealth {
	return BotHealth{
		BotReady:       s.bot.Ready(),
		GuildConnected: s.bot.GuildConnected(),
		BufferSize:     s.queue.Len(),
	}
}
