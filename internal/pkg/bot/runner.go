package bot

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// Runner connects to Discord and then runs the delivery loop. The webhook
// server keeps serving while the connection is retried.
type Runner struct {
	connector Connector
	batcher   *Batcher
	retry     time.Duration
	logger    *logger.Logger
}

// NewRunner creates a runner. A nil connector skips the Discord login.
func NewRunner(connector Connector, batcher *Batcher, retry time.Duration, log *logger.Logger) *Runner {
	if retry <= 0 {
		retry = 30 * time.Second
	}
	return &Runner{
		connector: connector,
		batcher:   batcher,
		retry:     retry,
		logger:    log.Named("bot-runner"),
	}
}

// Run blocks until ctx is cancelled
func (r *Runner) Run(ctx context.Context) error {
	if r.connector != nil {
		if err := r.connect(ctx); err != nil {
			return err
		}
	}
	return r.batcher.Run(ctx)
}

func (r *Runner) connect(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		err := r.connector.Connect(ctx)
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrUnauthorized) {
			r.logger.Error("Discord login failed, check DISCORD_BOT_TOKEN", zap.Error(err))
		} else {
			r.logger.Warn("Discord connection failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", r.retry),
				zap.Error(err))
		}

		select {
		case <-ctx.Done():
			// nothing was delivered, the buffered listings are dropped
			r.logger.Warn("Shutting down before Discord connected",
				zap.Int("buffered", r.batcher.Len()))
			return nil
		case <-time.After(r.retry):
		}
	}
}
