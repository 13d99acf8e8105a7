package scheduler

import (
	"context"
	"fmt"
	"time"

	cron "github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// Job represents a cron job that can be scheduled
type Job interface {
	// Name returns the name of the job
	Name() string

	// Schedule returns the cron schedule expression
	Schedule() string

	// Run executes the job
	Run(ctx context.Context) error

	// Description returns a description of what the job does
	Description() string

	// Timeout returns the maximum time the job should run
	Timeout() time.Duration
}

// JobResult represents the result of a job execution
type JobResult struct {
	JobName   string
	Success   bool
	Duration  time.Duration
	Error     error
	StartTime time.Time
	EndTime   time.Time
}

// Scheduler manages cron jobs
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger *logger.Logger
	jobs   map[string]Job
	jobIDs map[string]cron.EntryID
	order  []string
}

// NewScheduler creates a new scheduler instance. Job contexts derive from ctx,
// so cancelling it aborts running jobs.
func NewScheduler(ctx context.Context, c *cron.Cron, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   c,
		ctx:    ctx,
		logger: log.Named("scheduler"),
		jobs:   make(map[string]Job),
		jobIDs: make(map[string]cron.EntryID),
	}
}

// RegisterJob registers a single job with the scheduler
func (s *Scheduler) RegisterJob(job Job) error {
	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %q already registered", job.Name())
	}

	id, err := s.cron.AddFunc(job.Schedule(), func() { s.execute(job) })
	if err != nil {
		s.logger.Error("Failed to schedule job",
			zap.String("job_name", job.Name()),
			zap.String("schedule", job.Schedule()),
			zap.Error(err))
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}

	s.jobs[job.Name()] = job
	s.jobIDs[job.Name()] = id
	s.order = append(s.order, job.Name())
	s.logger.Info("Job registered successfully",
		zap.String("job_name", job.Name()),
		zap.String("schedule", job.Schedule()),
		zap.String("description", job.Description()))

	return nil
}

// RegisterJobs registers every job, stopping at the first failure
func (s *Scheduler) RegisterJobs(jobs ...Job) error {
	for _, job := range jobs {
		if err := s.RegisterJob(job); err != nil {
			return err
		}
	}

	s.logger.Info("All jobs registered successfully", zap.Int("job_count", len(jobs)))
	return nil
}

// RunNow executes a registered job immediately on the calling goroutine
func (s *Scheduler) RunNow(name string) (JobResult, error) {
	job, ok := s.jobs[name]
	if !ok {
		return JobResult{}, fmt.Errorf("job %q is not registered", name)
	}
	return s.execute(job), nil
}

// execute runs job with its timeout and logs the result
func (s *Scheduler) execute(job Job) JobResult {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(s.ctx, job.Timeout())
	defer cancel()

	s.logger.Debug("Starting job execution",
		zap.String("job_name", job.Name()),
		zap.Time("start_time", startTime))

	err := job.Run(ctx)

	endTime := time.Now()
	result := JobResult{
		JobName:   job.Name(),
		Success:   err == nil,
		Duration:  endTime.Sub(startTime),
		Error:     err,
		StartTime: startTime,
		EndTime:   endTime,
	}

	if result.Success {
		s.logger.Info("Job completed successfully",
			zap.String("job_name", result.JobName),
			zap.Duration("duration", result.Duration))
	} else {
		s.logger.Error("Job failed",
			zap.String("job_name", result.JobName),
			zap.Duration("duration", result.Duration),
			zap.Error(result.Error))
	}

	return result
}

// GetRegisteredJobs returns the registered job names in registration order
func (s *Scheduler) GetRegisteredJobs() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Start starts the cron loop in its own goroutine
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler", zap.Strings("jobs", s.order))
	s.cron.Start()
}

// Stop stops the scheduler; the returned context is done once running jobs finish
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("Stopping scheduler")
	return s.cron.Stop()
}
