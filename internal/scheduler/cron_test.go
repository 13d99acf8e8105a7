package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	cron "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

type testJob struct {
	name     string
	schedule string
	timeout  time.Duration
	err      error
	deadline bool
}

func (j *testJob) Name() string           { return j.name }
func (j *testJob) Schedule() string       { return j.schedule }
func (j *testJob) Description() string    { return "test job" }
func (j *testJob) Timeout() time.Duration { return j.timeout }

func (j *testJob) Run(ctx context.Context) error {
	_, j.deadline = ctx.Deadline()
	return j.err
}

func TestRegisterAndRunNow(t *testing.T) {
	s := NewScheduler(context.Background(), cron.New(), logger.NewNop())

	ok := &testJob{name: "ok", schedule: "@every 1h", timeout: time.Second}
	failing := &testJob{name: "failing", schedule: "* * * * *", timeout: time.Second, err: errors.New("boom")}
	require.NoError(t, s.RegisterJobs(ok, failing))
	assert.Equal(t, []string{"ok", "failing"}, s.GetRegisteredJobs())

	res, err := s.RunNow("ok")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, ok.deadline, "jobs run under their timeout")

	res, err = s.RunNow("failing")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.EqualError(t, res.Error, "boom")

	_, err = s.RunNow("missing")
	assert.Error(t, err)
}

func TestRegisterRejectsDuplicatesAndBadSchedules(t *testing.T) {
	s := NewScheduler(context.Background(), cron.New(), logger.NewNop())

	require.NoError(t, s.RegisterJob(&testJob{name: "a", schedule: "@every 1m", timeout: time.Second}))
	assert.Error(t, s.RegisterJob(&testJob{name: "a", schedule: "@every 1m", timeout: time.Second}))
	assert.Error(t, s.RegisterJob(&testJob{name: "b", schedule: "not a schedule", timeout: time.Second}))
	assert.Equal(t, []string{"a"}, s.GetRegisteredJobs())
}

func TestStopWaitsForScheduler(t *testing.T) {
	s := NewScheduler(context.Background(), cron.New(), logger.NewNop())
	s.Start()

	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
