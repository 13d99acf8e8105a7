package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// ErrNoChannels is returned when a listing has nowhere to go
var ErrNoChannels = errors.New("no discord channel configured for listing")

// Dispatcher posts a listing to the alert channel and its secondary channels
type Dispatcher struct {
	sender   Sender
	channels Channels
	now      func() time.Time
	logger   *logger.Logger
}

// NewDispatcher creates a dispatcher. A nil sender stores listings without posting them.
func NewDispatcher(sender Sender, channels Channels, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		sender:   sender,
		channels: channels,
		now:      time.Now,
		logger:   log.Named("dispatcher"),
	}
}

// Deliver posts l and returns the id of the first message sent. Secondary
// channel failures are logged; the listing counts as delivered once any
// channel accepted it.
func (d *Dispatcher) Deliver(ctx context.Context, l listing.Listing) (*int64, error) {
	if d.sender == nil {
		d.logger.Debug("Discord disabled, storing listing only", zap.String("auction_id", l.AuctionID))
		return nil, nil
	}

	targets := d.channels.Targets(l)
	if len(targets) == 0 {
		return nil, ErrNoChannels
	}

	var (
		first   *int64
		lastErr error
	)
	for _, t := range targets {
		id, err := d.sender.SendEmbed(ctx, t.ChannelID, BuildEmbed(l, t.Kind, d.now()))
		if err != nil {
			lastErr = err
			d.logger.Warn("Failed to post listing",
				zap.String("auction_id", l.AuctionID),
				zap.String("channel_id", t.ChannelID),
				zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if first == nil {
			first = &id
		}
	}

	if first == nil {
		return nil, fmt.Errorf("failed to deliver %s: %w", l.AuctionID, lastErr)
	}
	return first, nil
}
