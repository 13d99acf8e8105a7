package bot

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/app/config"
	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/metrics"
)

const storeTimeout = 10 * time.Second

// Store persists delivered listings
type Store interface {
	Upsert(ctx context.Context, l *listing.Listing, messageID *int64) error
}

// BatcherConfig controls when the buffer is flushed
type BatcherConfig struct {
	Size         int
	Timeout      time.Duration
	Tick         time.Duration
	DrainTimeout time.Duration
}

// BatcherConfigFromConfig reads the batching settings from config
func BatcherConfigFromConfig(cfg *config.Config) BatcherConfig {
	return BatcherConfig{
		Size:         cfg.BatchSize,
		Timeout:      cfg.BatchTimeout,
		Tick:         time.Second,
		DrainTimeout: 30 * time.Second,
	}
}

// Batcher buffers webhook listings and delivers them in batches of Size,
// or sooner once the oldest buffered listing has waited Timeout.
type Batcher struct {
	cfg      BatcherConfig
	delivery Deliverer
	store    Store
	metrics  *metrics.Metrics
	logger   *logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	buf     []listing.Listing
	pending map[string]struct{}
	first   time.Time

	kick chan struct{}
}

// NewBatcher creates a batcher
func NewBatcher(cfg BatcherConfig, d Deliverer, store Store, m *metrics.Metrics, log *logger.Logger) *Batcher {
	if cfg.Size <= 0 {
		cfg.Size = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 30 * time.Second
	}

	return &Batcher{
		cfg:      cfg,
		delivery: d,
		store:    store,
		metrics:  m,
		logger:   log.Named("batcher"),
		now:      time.Now,
		pending:  make(map[string]struct{}),
		kick:     make(chan struct{}, 1),
	}
}

// Enqueue buffers l. ok is false when the auction is already waiting.
func (b *Batcher) Enqueue(l listing.Listing) (size int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, dup := b.pending[l.AuctionID]; dup {
		return len(b.buf), false
	}

	if len(b.buf) == 0 {
		b.first = b.now()
	}
	b.buf = append(b.buf, l)
	b.pending[l.AuctionID] = struct{}{}
	size = len(b.buf)
	b.metrics.SetBatchBufferSize(size)

	if size >= b.cfg.Size {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
	return size, true
}

// Len returns the number of buffered listings
func (b *Batcher) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Due reports whether a flush should happen now
func (b *Batcher) Due() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dueLocked()
}

func (b *Batcher) dueLocked() bool {
	if len(b.buf) == 0 {
		return false
	}
	return len(b.buf) >= b.cfg.Size || b.now().Sub(b.first) >= b.cfg.Timeout
}

// take removes up to Size listings from the front of the buffer
func (b *Batcher) take() []listing.Listing {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := min(len(b.buf), b.cfg.Size)
	batch := make([]listing.Listing, n)
	copy(batch, b.buf[:n])
	b.buf = b.buf[n:]
	if len(b.buf) > 0 {
		// the remainder starts a fresh wait
		b.first = b.now()
	}
	b.metrics.SetBatchBufferSize(len(b.buf))
	return batch
}

// requeue puts listings back at the front of the buffer. Their pending
// entries are still held, so the webhook keeps rejecting duplicates.
func (b *Batcher) requeue(batch []listing.Listing) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.buf) == 0 {
		b.first = b.now()
	}
	b.buf = append(append(make([]listing.Listing, 0, len(batch)+len(b.buf)), batch...), b.buf...)
	b.metrics.SetBatchBufferSize(len(b.buf))
}

func (b *Batcher) release(auctionID string) {
	b.mu.Lock()
	delete(b.pending, auctionID)
	b.mu.Unlock()
}

// Flush delivers one batch and returns how many listings were posted
func (b *Batcher) Flush(ctx context.Context) int {
	batch := b.take()
	if len(batch) == 0 {
		return 0
	}

	batchID := uuid.NewString()
	b.logger.Info("Processing batch",
		zap.String("batch_id", batchID),
		zap.Int("listings", len(batch)))

	delivered, requeued := 0, 0
	for i := range batch {
		l := &batch[i]
		ok := b.deliver(ctx, l)
		if !ok && ctx.Err() != nil {
			// cancelled mid-batch; the drain delivers the rest
			requeued = len(batch) - i
			b.requeue(batch[i:])
			break
		}
		if ok {
			delivered++
		}
		b.release(l.AuctionID)
	}

	remaining := b.Len()
	b.metrics.RecordBatchFlush(remaining)
	b.logger.Info("Batch processed",
		zap.String("batch_id", batchID),
		zap.Int("delivered", delivered),
		zap.Int("failed", len(batch)-delivered-requeued),
		zap.Int("requeued", requeued),
		zap.Int("remaining", remaining))
	return delivered
}

func (b *Batcher) deliver(ctx context.Context, l *listing.Listing) bool {
	if ctx.Err() != nil {
		return false
	}

	messageID, err := b.delivery.Deliver(ctx, *l)
	b.metrics.RecordListingDelivered(err)
	if err != nil {
		b.logger.Error("Failed to deliver listing",
			zap.String("auction_id", l.AuctionID),
			zap.Error(err))
		return false
	}

	// A posted listing is stored even if shutdown started meanwhile
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	if err := b.store.Upsert(storeCtx, l, messageID); err != nil {
		b.logger.Error("Delivered listing was not stored",
			zap.String("auction_id", l.AuctionID),
			zap.Error(err))
	}
	return true
}

// Run flushes whenever the buffer is due until ctx is cancelled, then drains
// what is left with a fresh deadline.
func (b *Batcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.cfg.Tick)
	defer ticker.Stop()

	b.logger.Info("Batch processor started",
		zap.Int("batch_size", b.cfg.Size),
		zap.Duration("batch_timeout", b.cfg.Timeout))

	for {
		select {
		case <-ctx.Done():
			b.drain()
			return nil
		case <-ticker.C:
		case <-b.kick:
		}

		for b.Due() && ctx.Err() == nil {
			b.Flush(ctx)
		}
	}
}

func (b *Batcher) drain() {
	if b.Len() == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.DrainTimeout)
	defer cancel()

	b.logger.Info("Draining batch buffer", zap.Int("listings", b.Len()))
	for b.Len() > 0 && ctx.Err() == nil {
		b.Flush(ctx)
	}
	if left := b.Len(); left > 0 {
		b.logger.Warn("Drain deadline reached, listings not delivered", zap.Int("listings", left))
	}
}
