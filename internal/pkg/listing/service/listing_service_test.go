package listingService

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

type fakeRepo struct {
	stored    map[string]bool
	existsErr error
	stats     listing.Stats
	lastLimit int
}

func (r *fakeRepo) Upsert(_ context.Context, l *listing.Listing, _ *int64) error {
	r.stored[l.AuctionID] = true
	return nil
}

func (r *fakeRepo) Exists(_ context.Context, id string) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	return r.stored[id], nil
}

func (r *fakeRepo) Counts(context.Context) (listing.Stats, error) { return r.stats, nil }

func (r *fakeRepo) Recent(_ context.Context, limit int) ([]listing.Listing, error) {
	r.lastLimit = limit
	return nil, nil
}

type fakeQueue struct {
	items []listing.Listing
}

func (q *fakeQueue) Enqueue(l listing.Listing) (int, bool) {
	for _, it := range q.items {
		if it.AuctionID == l.AuctionID {
			return len(q.items), false
		}
	}
	q.items = append(q.items, l)
	return len(q.items), true
}

func (q *fakeQueue) Len() int { return len(q.items) }

type fakeBot struct{ ready, guild bool }

func (b fakeBot) Ready() bool          { return b.ready }
func (b fakeBot) GuildConnected() bool { return b.guild }

func newRequest(id string) *listing.WebhookRequest {
	jpy := int64(15000)
	usd := 100.0
	return &listing.WebhookRequest{
		Listing: listing.Listing{
			AuctionID:    id,
			Title:        "Raf Simons bomber",
			Brand:        "Raf Simons",
			ZenmarketURL: "https://zenmarket.jp/en/auction.aspx?itemCode=" + id,
			DealQuality:  0.5,
		},
		PriceJPY: &jpy,
		PriceUSD: &usd,
	}
}

func newTestService(repo *fakeRepo, q *fakeQueue) *DefaultListingService {
	return NewListingService(repo, q, fakeBot{ready: true}, nil, logger.NewNop())
}

func TestIngestQueues(t *testing.T) {
	q := &fakeQueue{}
	svc := newTestService(&fakeRepo{stored: map[string]bool{}}, q)

	resp, err := svc.Ingest(context.Background(), newRequest("x100000001"))
	require.NoError(t, err)
	assert.Equal(t, &QueuedResponse{Status: "queued", BufferSize: 1, AuctionID: "x100000001"}, resp)
	require.Len(t, q.items, 1)
	assert.Equal(t, "unknown", q.items[0].SellerID)
	assert.Equal(t, int64(15000), q.items[0].PriceJPY)
}

func TestIngestRejections(t *testing.T) {
	tests := []struct {
		name     string
		stored   map[string]bool
		buffered []listing.Listing
		mutate   func(r *listing.WebhookRequest)
		wantErr  error
	}{
		{
			name:    "missing title",
			mutate:  func(r *listing.WebhookRequest) { r.Title = "" },
			wantErr: listing.ErrInvalidListing,
		},
		{
			name:    "missing price",
			mutate:  func(r *listing.WebhookRequest) { r.PriceUSD = nil },
			wantErr: listing.ErrInvalidListing,
		},
		{
			name:    "malformed auction id",
			mutate:  func(r *listing.WebhookRequest) { r.AuctionID = "not-an-id" },
			wantErr: listing.ErrInvalidListing,
		},
		{
			name:    "already stored",
			stored:  map[string]bool{"x100000001": true},
			wantErr: listing.ErrDuplicateListing,
		},
		{
			name:     "already buffered",
			buffered: []listing.Listing{{AuctionID: "x100000001"}},
			wantErr:  listing.ErrDuplicateListing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := tt.stored
			if stored == nil {
				stored = map[string]bool{}
			}
			q := &fakeQueue{items: tt.buffered}
			svc := newTestService(&fakeRepo{stored: stored}, q)

			req := newRequest("x100000001")
			if tt.mutate != nil {
				tt.mutate(req)
			}

			_, err := svc.Ingest(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, q.items, len(tt.buffered))
		})
	}
}

func TestIngestStoreError(t *testing.T) {
	svc := newTestService(&fakeRepo{existsErr: errors.New("db down")}, &fakeQueue{})

	_, err := svc.Ingest(context.Background(), newRequest("x100000001"))
	require.Error(t, err)
	assert.False(t, listing.IsDuplicate(err))
}

func TestStatsIncludesBuffer(t *testing.T) {
	q := &fakeQueue{items: []listing.Listing{{AuctionID: "a"}, {AuctionID: "b"}}}
	repo := &fakeRepo{stats: listing.Stats{TotalListings: 10}}
	svc := newTestService(repo, q)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalListings)
	assert.Equal(t, 2, stats.BufferSize)
}

func TestRecentClampsLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 20},
		{-5, 20},
		{7, 7},
		{500, 100},
	}

	for _, tt := range tests {
		repo := &fakeRepo{}
		svc := newTestService(repo, &fakeQueue{})
		_, err := svc.Recent(context.Background(), tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, repo.lastLimit)
	}
}

func TestBotHealth(t *testing.T) {
	svc := NewListingService(&fakeRepo{}, &fakeQueue{items: []listing.Listing{{}}},
		fakeBot{ready: true, guild: false}, nil, logger.NewNop())

	assert.Equal(t, BotHealth{BotReady: true, GuildConnected: false, BufferSize: 1}, svc.BotHealth())
}
