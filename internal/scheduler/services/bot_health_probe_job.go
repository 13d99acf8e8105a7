package schedulerServices

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// BotChecker probes the downstream Discord bot
type BotChecker interface {
	CheckBot(ctx context.Context) bool
}

// BotHealthProbeJob refreshes the sniper's view of the bot's readiness
type BotHealthProbeJob struct {
	checker BotChecker
	logger  *logger.Logger
	healthy atomic.Bool
}

// NewBotHealthProbeJob creates the bot health probe job
func NewBotHealthProbeJob(checker BotChecker, log *logger.Logger) *BotHealthProbeJob {
	j := &BotHealthProbeJob{
		checker: checker,
		logger:  log.Named("bot-health-job"),
	}
	j.healthy.Store(true)
	return j
}

// Name returns the name of the job
func (j *BotHealthProbeJob) Name() string {
	return "bot-health-probe"
}

// Schedule returns the cron schedule expression (runs every minute)
func (j *BotHealthProbeJob) Schedule() string {
	return "@every 1m"
}

// Description returns a description of what the job does
func (j *BotHealthProbeJob) Description() string {
	return "Checks that the Discord bot is up and connected to its guild"
}

// Timeout returns the maximum time the job should run
func (j *BotHealthProbeJob) Timeout() time.Duration {
	return 30 * time.Second
}

// Run probes the bot, logging only transitions
func (j *BotHealthProbeJob) Run(ctx context.Context) error {
	ok := j.checker.CheckBot(ctx)
	was := j.healthy.Swap(ok)
	switch {
	case ok && !was:
		j.logger.Info("Discord bot is healthy again")
	case !ok && was:
		j.logger.Warn("Discord bot is not ready; listings will fail until it recovers")
	}
	return nil
}

// Healthy reports the result of the last probe
func (j *BotHealthProbeJob) Healthy() bool {
	return j.healthy.Load()
}
