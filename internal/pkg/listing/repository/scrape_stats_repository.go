package listingRepository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// PgxQuerier is the subset of *pgxpool.Pool the stats repository needs
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ScrapeStatsRepository records sniper cycle statistics
type ScrapeStatsRepository interface {
	Record(ctx context.Context, s listing.ScrapeStats) error
	Latest(ctx context.Context) (*listing.ScrapeStats, error)
}

type pgxScrapeStatsRepository struct {
	pool   PgxQuerier
	logger *logger.Logger
}

// NewScrapeStatsRepository creates a pgx-backed scrape stats repository
func NewScrapeStatsRepository(pool PgxQuerier, log *logger.Logger) ScrapeStatsRepository {
	return &pgxScrapeStatsRepository{
		pool:   pool,
		logger: log.Named("scrape-stats-repo"),
	}
}

const insertScrapeStatsQuery = `INSERT INTO scraper_stats
	(total_found, quality_filtered, sent_to_discord, errors_count, keywords_searched)
VALUES ($1, $2, $3, $4, $5)`

// Record appends one cycle's statistics
func (r *pgxScrapeStatsRepository) Record(ctx context.Context, s listing.ScrapeStats) error {
	_, err := r.pool.Exec(ctx, insertScrapeStatsQuery,
		s.TotalFound, s.QualityFiltered, s.SentToDiscord, s.ErrorsCount, s.KeywordsSearched)
	if err != nil {
		r.logger.Error("failed to record scrape stats", zap.Error(err))
		return fmt.Errorf("failed to record scrape stats: %w", err)
	}
	return nil
}

const latestScrapeStatsQuery = `SELECT timestamp, total_found, quality_filtered, sent_to_discord,
	errors_count, keywords_searched
FROM scraper_stats
ORDER BY timestamp DESC
LIMIT 1`

// Latest returns the most recent row, or nil when no cycle has completed yet
func (r *pgxScrapeStatsRepository) Latest(ctx context.Context) (*listing.ScrapeStats, error) {
	var s listing.ScrapeStats
	err := r.pool.QueryRow(ctx, latestScrapeStatsQuery).Scan(
		&s.Timestamp, &s.TotalFound, &s.QualityFiltered, &s.SentToDiscord,
		&s.ErrorsCount, &s.KeywordsSearched)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scrape stats: %w", err)
	}
	return &s, nil
}
