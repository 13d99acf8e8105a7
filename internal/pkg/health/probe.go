package health

import (
	"context"
	"fmt"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05.000000"

// FormatTimestamp renders t in UTC as ISO-8601 with microseconds and an explicit +00:00 offset.
// Years outside 0..9999 have no four-digit ISO-8601 form and are rejected.
func FormatTimestamp(t time.Time) (string, error) {
	t = t.UTC()
	if y := t.Year(); y < 0 || y > 9999 {
		return "", fmt.Errorf("year %d is out of range", y)
	}
	return t.Format(timestampLayout) + "+00:00", nil
}

// Probe answers the liveness question for GET /health
type Probe struct {
	readiness Readiness
	clock     Clock
}

// NewProbe creates a probe. readiness may be nil until the bot is constructed; clock defaults
// to the system clock.
func NewProbe(readiness Readiness, clock Clock) *Probe {
	if clock == nil {
		clock = SystemClock
	}
	return &Probe{readiness: readiness, clock: clock}
}

// Check reads the readiness flag and stamps the result
func (p *Probe) Check(_ context.Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Outcome: OutcomeFailed, Err: fmt.Errorf("%v", r)}
		}
	}()

	ready := false
	if p.readiness != nil {
		ready = p.readiness.Ready()
	}

	ts, err := FormatTimestamp(p.clock.Now())
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	outcome := OutcomeHealthy
	if !ready {
		outcome = OutcomeNotReady
	}

	return Result{
		Outcome:   outcome,
		BotReady:  ready,
		Timestamp: ts,
	}
}
