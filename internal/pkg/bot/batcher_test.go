package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	fail map[string]error
	next int64
}

func (s *recordingSender) SendEmbed(_ context.Context, channelID string, _ Embed) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[channelID]; err != nil {
		return 0, err
	}
	s.sent = append(s.sent, channelID)
	s.next++
	return s.next, nil
}

type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []string
	fail      map[string]bool
}

func (d *fakeDeliverer) Deliver(_ context.Context, l listing.Listing) (*int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail[l.AuctionID] {
		return nil, errors.New("discord unavailable")
	}
	d.delivered = append(d.delivered, l.AuctionID)
	id := int64(len(d.delivered))
	return &id, nil
}

func (d *fakeDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.delivered)
}

type memStore struct {
	mu     sync.Mutex
	stored map[string]*int64
}

func newMemStore() *memStore { return &memStore{stored: map[string]*int64{}} }

func (s *memStore) Upsert(_ context.Context, l *listing.Listing, messageID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored[l.AuctionID] = messageID
	return nil
}

func item(id string) listing.Listing {
	return listing.Listing{AuctionID: id, Title: "t", Brand: "Prada", PriceUSD: 500}
}

func TestDispatcherFansOut(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, NewChannels("100", "300", map[string]string{"prada": "200"}), logger.NewNop())

	l := item("x1")
	l.PriceUSD = 80
	id, err := d.Deliver(context.Background(), l)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(1), *id)
	assert.Equal(t, []string{"100", "200", "300"}, sender.sent)
}

func TestDispatcherSecondaryFailureStillDelivers(t *testing.T) {
	sender := &recordingSender{fail: map[string]error{"100": errors.New("missing access")}}
	d := NewDispatcher(sender, NewChannels("100", "", map[string]string{"prada": "200"}), logger.NewNop())

	id, err := d.Deliver(context.Background(), item("x1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), *id)
	assert.Equal(t, []string{"200"}, sender.sent)
}

func TestDispatcherErrors(t *testing.T) {
	_, err := NewDispatcher(&recordingSender{}, NewChannels("", "", nil), logger.NewNop()).
		Deliver(context.Background(), item("x1"))
	assert.ErrorIs(t, err, ErrNoChannels)

	failing := &recordingSender{fail: map[string]error{"100": errors.New("boom")}}
	_, err = NewDispatcher(failing, NewChannels("100", "", nil), logger.NewNop()).
		Deliver(context.Background(), item("x1"))
	assert.ErrorContains(t, err, "boom")

	id, err := NewDispatcher(nil, NewChannels("100", "", nil), logger.NewNop()).
		Deliver(context.Background(), item("x1"))
	assert.NoError(t, err)
	assert.Nil(t, id)
}

func newTestBatcher(size int, timeout time.Duration, d Deliverer, store Store) *Batcher {
	return NewBatcher(BatcherConfig{Size: size, Timeout: timeout, Tick: 10 * time.Millisecond},
		d, store, nil, logger.NewNop())
}

func TestEnqueueDedupesPending(t *testing.T) {
	b := newTestBatcher(4, time.Minute, &fakeDeliverer{}, newMemStore())

	size, ok := b.Enqueue(item("x1"))
	assert.True(t, ok)
	assert.Equal(t, 1, size)

	size, ok = b.Enqueue(item("x1"))
	assert.False(t, ok)
	assert.Equal(t, 1, size)

	size, ok = b.Enqueue(item("x2"))
	assert.True(t, ok)
	assert.Equal(t, 2, size)
	assert.Equal(t, 2, b.Len())
}

func TestDue(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newTestBatcher(3, 30*time.Second, &fakeDeliverer{}, newMemStore())
	b.now = func() time.Time { return now }

	assert.False(t, b.Due(), "empty buffer")

	b.Enqueue(item("x1"))
	assert.False(t, b.Due())

	now = now.Add(29 * time.Second)
	assert.False(t, b.Due())

	now = now.Add(time.Second)
	assert.True(t, b.Due(), "timeout since first item")

	b2 := newTestBatcher(2, time.Hour, &fakeDeliverer{}, newMemStore())
	b2.Enqueue(item("x1"))
	b2.Enqueue(item("x2"))
	assert.True(t, b2.Due(), "full batch")
}

func TestFlushDeliversOneBatchAndStores(t *testing.T) {
	d := &fakeDeliverer{fail: map[string]bool{"x2": true}}
	store := newMemStore()
	b := newTestBatcher(2, time.Hour, d, store)

	for i := 1; i <= 3; i++ {
		b.Enqueue(item(fmt.Sprintf("x%d", i)))
	}

	delivered := b.Flush(context.Background())
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, []string{"x1"}, d.delivered)
	require.Contains(t, store.stored, "x1")
	assert.Equal(t, int64(1), *store.stored["x1"])
	assert.NotContains(t, store.stored, "x2")

	// a flushed id can be queued again
	_, ok := b.Enqueue(item("x1"))
	assert.True(t, ok)
}

func TestRunFlushesFullBatch(t *testing.T) {
	d := &fakeDeliverer{}
	b := newTestBatcher(2, time.Hour, d, newMemStore())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = b.Run(ctx)
		close(done)
	}()

	b.Enqueue(item("x1"))
	b.Enqueue(item("x2"))

	assert.Eventually(t, func() bool { return d.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func TestRunDrainsOnShutdown(t *testing.T) {
	d := &fakeDeliverer{}
	b := newTestBatcher(2, time.Hour, d, newMemStore())
	b.Enqueue(item("x1"))
	b.Enqueue(item("x2"))
	b.Enqueue(item("x3"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, b.Run(ctx))

	assert.Equal(t, 3, d.count())
	assert.Equal(t, 0, b.Len())
}

// stallingDeliverer blocks its first delivery until ctx is cancelled
type stallingDeliverer struct {
	fakeDeliverer
	once    sync.Once
	started chan struct{}
}

func (d *stallingDeliverer) Deliver(ctx context.Context, l listing.Listing) (*int64, error) {
	stall := false
	d.once.Do(func() {
		stall = true
		close(d.started)
	})
	if stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return d.fakeDeliverer.Deliver(ctx, l)
}

func TestRunKeepsInFlightBatchOnShutdown(t *testing.T) {
	d := &stallingDeliverer{started: make(chan struct{})}
	store := newMemStore()
	b := newTestBatcher(4, time.Hour, d, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	for i := 1; i <= 4; i++ {
		_, ok := b.Enqueue(item(fmt.Sprintf("x%d", i)))
		require.True(t, ok)
	}

	select {
	case <-d.started:
	case <-time.After(2 * time.Second):
		t.Fatal("batch was never flushed")
	}
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 4, d.count())
	assert.Len(t, store.stored, 4)
	assert.Equal(t, 0, b.Len())
}

func TestFlushRequeuesWhenCancelled(t *testing.T) {
	d := &fakeDeliverer{}
	b := newTestBatcher(2, time.Hour, d, newMemStore())
	b.Enqueue(item("x1"))
	b.Enqueue(item("x2"))
	b.Enqueue(item("x3"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, 0, b.Flush(ctx))
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 0, d.count())

	// still pending, so the webhook keeps rejecting it
	_, ok := b.Enqueue(item("x1"))
	assert.False(t, ok)

	assert.Equal(t, 2, b.Flush(context.Background()))
	assert.Equal(t, []string{"x1", "x2"}, d.delivered)
}

type flakyConnector struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (c *flakyConnector) Connect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls <= c.failures {
		return errors.New("gateway timeout")
	}
	return nil
}

func TestRunnerRetriesConnect(t *testing.T) {
	conn := &flakyConnector{failures: 2}
	d := &fakeDeliverer{}
	b := newTestBatcher(1, time.Hour, d, newMemStore())
	r := NewRunner(conn, b, 5*time.Millisecond, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	b.Enqueue(item("x1"))
	assert.Eventually(t, func() bool { return d.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	conn.mu.Lock()
	assert.Equal(t, 3, conn.calls)
	conn.mu.Unlock()
}

func TestRunnerStopsWhileConnecting(t *testing.T) {
	conn := &flakyConnector{failures: 1 << 30}
	b := newTestBatcher(1, time.Hour, &fakeDeliverer{}, newMemStore())
	r := NewRunner(conn, b, time.Hour, logger.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, r.Run(ctx))
}
