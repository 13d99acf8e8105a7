package schedulerServices

import (
	"context"
	"time"

	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// CycleRunner runs one scrape cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (listing.ScrapeStats, error)
}

// SniperCycleJob searches Yahoo for every brand keyword and publishes new finds
type SniperCycleJob struct {
	runner   CycleRunner
	schedule string
	timeout  time.Duration
	logger   *logger.Logger
}

// NewSniperCycleJob creates the scrape cycle job
func NewSniperCycleJob(runner CycleRunner, schedule string, timeout time.Duration, log *logger.Logger) *SniperCycleJob {
	if schedule == "" {
		schedule = "@every 5m"
	}
	if timeout <= 0 {
		timeout = 4 * time.Minute
	}
	return &SniperCycleJob{
		runner:   runner,
		schedule: schedule,
		timeout:  timeout,
		logger:   log.Named("sniper-cycle-job"),
	}
}

// Name returns the name of the job
func (j *SniperCycleJob) Name() string {
	return "sniper-cycle"
}

// Schedule returns the cron schedule expression
func (j *SniperCycleJob) Schedule() string {
	return j.schedule
}

// Description returns a description of what the job does
func (j *SniperCycleJob) Description() string {
	return "Searches Yahoo Auctions for tracked brands and sends quality listings to the bot"
}

// Timeout returns the maximum time the job should run
func (j *SniperCycleJob) Timeout() time.Duration {
	return j.timeout
}

// Run executes one cycle
func (j *SniperCycleJob) Run(ctx context.Context) error {
	_, err := j.runner.RunCycle(ctx)
	return err
}
