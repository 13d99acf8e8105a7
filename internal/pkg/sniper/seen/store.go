package seen

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/cache"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// Key is the Redis set holding every auction id the sniper has handled
const Key = cache.KeyPrefixSniper + "seen"

const defaultSize = 50000

// SetStore is the subset of the Redis wrapper the store needs
type SetStore interface {
	SetMember(ctx context.Context, key, member string) (bool, error)
	SetAdd(ctx context.Context, key string, members ...string) error
	Delete(ctx context.Context, keys ...string) error
}

// Store remembers auction ids across cycles and restarts. The LRU answers
// repeat lookups without a round trip; Redis is the source of truth.
type Store struct {
	redis  SetStore
	recent *lru.Cache[string, struct{}]
	logger *logger.Logger
}

// NewStore creates a seen-id store. redis may be nil, in which case ids are
// only remembered in memory.
func NewStore(redis SetStore, size int, log *logger.Logger) (*Store, error) {
	if size <= 0 {
		size = defaultSize
	}
	recent, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create seen cache: %w", err)
	}

	return &Store{
		redis:  redis,
		recent: recent,
		logger: log.Named("seen"),
	}, nil
}

// Seen reports whether id was marked before. A Redis failure is logged and
// treated as unseen; the bot rejects true duplicates anyway.
func (s *Store) Seen(ctx context.Context, id string) bool {
	if s.recent.Contains(id) {
		return true
	}
	if s.redis == nil {
		return false
	}

	ok, err := s.redis.SetMember(ctx, Key, id)
	if err != nil {
		s.logger.Warn("Seen lookup failed", zap.String("auction_id", id), zap.Error(err))
		return false
	}
	if ok {
		s.recent.Add(id, struct{}{})
	}
	return ok
}

// Mark records ids as handled
func (s *Store) Mark(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		s.recent.Add(id, struct{}{})
	}
	if s.redis == nil || len(ids) == 0 {
		return nil
	}
	if err := s.redis.SetAdd(ctx, Key, ids...); err != nil {
		return fmt.Errorf("failed to mark seen ids: %w", err)
	}
	return nil
}

// Len is the number of ids held in memory
func (s *Store) Len() int {
	return s.recent.Len()
}

// Reset forgets every id so relisted auctions are picked up again
func (s *Store) Reset(ctx context.Context) error {
	s.recent.Purge()
	if s.redis == nil {
		return nil
	}
	if err := s.redis.Delete(ctx, Key); err != nil {
		return fmt.Errorf("failed to reset seen ids: %w", err)
	}
	s.logger.Info("Seen ids cleared")
	return nil
}
