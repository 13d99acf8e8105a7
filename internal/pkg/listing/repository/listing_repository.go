package listingRepository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/database"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// ListingRepository persists delivered listings
type ListingRepository interface {
	Upsert(ctx context.Context, l *listing.Listing, messageID *int64) error
	Exists(ctx context.Context, auctionID string) (bool, error)
	Counts(ctx context.Context) (listing.Stats, error)
	Recent(ctx context.Context, limit int) ([]listing.Listing, error)
}

type sqlListingRepository struct {
	db     *database.Database
	logger *logger.Logger
}

// NewListingRepository creates a Postgres-backed listing repository
func NewListingRepository(db *database.Database, log *logger.Logger) ListingRepository {
	return &sqlListingRepository{
		db:     db,
		logger: log.Named("listing-repo"),
	}
}

const upsertListingQuery = `INSERT INTO listings
	(auction_id, title, brand, price_jpy, price_usd, seller_id,
	 zenmarket_url, yahoo_url, image_url, deal_quality, priority_score, message_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (auction_id) DO UPDATE SET
	title = EXCLUDED.title,
	message_id = EXCLUDED.message_id`

// Upsert stores the listing; a re-post refreshes the title and message id
func (r *sqlListingRepository) Upsert(ctx context.Context, l *listing.Listing, messageID *int64) error {
	_, err := r.db.ExecContext(ctx, upsertListingQuery,
		l.AuctionID, l.Title, l.Brand, l.PriceJPY, l.PriceUSD, l.SellerID,
		l.ZenmarketURL, l.YahooURL, l.ImageURL, l.DealQuality, l.Priority, messageID,
	)
	if err != nil {
		r.logger.Error("failed to upsert listing",
			zap.Error(err),
			zap.String("auction_id", l.AuctionID))
		return fmt.Errorf("failed to upsert listing: %w", err)
	}
	return nil
}

const existsListingQuery = `SELECT EXISTS(SELECT 1 FROM listings WHERE auction_id = $1)`

// Exists reports whether the auction has already been stored
func (r *sqlListingRepository) Exists(ctx context.Context, auctionID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, existsListingQuery, auctionID); err != nil {
		return false, fmt.Errorf("failed to check listing: %w", err)
	}
	return exists, nil
}

const countsQuery = `SELECT
	(SELECT COUNT(*) FROM listings) AS total_listings,
	(SELECT COUNT(*) FROM reactions) AS total_reactions,
	(SELECT COUNT(DISTINCT user_id) FROM user_preferences WHERE setup_complete = TRUE) AS active_users`

// Counts returns the totals reported by GET /stats
func (r *sqlListingRepository) Counts(ctx context.Context) (listing.Stats, error) {
	var row struct {
		TotalListings  int64 `db:"total_listings"`
		TotalReactions int64 `db:"total_reactions"`
		ActiveUsers    int64 `db:"active_users"`
	}
	if err := r.db.GetContext(ctx, &row, countsQuery); err != nil {
		return listing.Stats{}, fmt.Errorf("failed to count listings: %w", err)
	}

	return listing.Stats{
		TotalListings:  row.TotalListings,
		TotalReactions: row.TotalReactions,
		ActiveUsers:    row.ActiveUsers,
	}, nil
}

const recentListingsQuery = `SELECT auction_id, COALESCE(title, '') AS title, COALESCE(brand, '') AS brand,
	COALESCE(price_jpy, 0) AS price_jpy, COALESCE(price_usd, 0) AS price_usd,
	COALESCE(seller_id, '') AS seller_id, COALESCE(zenmarket_url, '') AS zenmarket_url,
	COALESCE(yahoo_url, '') AS yahoo_url, COALESCE(image_url, '') AS image_url,
	COALESCE(deal_quality, 0) AS deal_quality, COALESCE(priority_score, 0) AS priority_score,
	message_id, created_at
FROM listings
ORDER BY created_at DESC
LIMIT $1`

// Recent returns the newest listings first
func (r *sqlListingRepository) Recent(ctx context.Context, limit int) ([]listing.Listing, error) {
	listings := make([]listing.Listing, 0, limit)
	if err := r.db.SelectContext(ctx, &listings, recentListingsQuery, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent listings: %w", err)
	}
	return listings, nil
}
