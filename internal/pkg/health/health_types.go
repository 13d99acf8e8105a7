package health

import "time"

// Readiness reports whether the Discord side of the process is ready to deliver.
// A nil Readiness means the component owning the flag has not been created yet.
type Readiness interface {
	Ready() bool
}

// ReadinessFunc adapts a plain function to Readiness
type ReadinessFunc func() bool

// Ready calls f
func (f ReadinessFunc) Ready() bool { return f() }

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock
type ClockFunc func() time.Time

// Now calls f
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock
var SystemClock Clock = ClockFunc(time.Now)

// Outcome classifies a health probe
type Outcome int

const (
	OutcomeHealthy Outcome = iota
	OutcomeNotReady
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHealthy:
		return "healthy"
	case OutcomeNotReady:
		return "not_ready"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is what a probe produced; the HTTP layer decides how to render it
type Result struct {
	Outcome   Outcome
	BotReady  bool
	Timestamp string
	Err       error
}

// Payload is the body of a successful GET /health
type Payload struct {
	Status    string `json:"status"`
	BotReady  bool   `json:"bot_ready"`
	Timestamp string `json:"timestamp"`
}

// ErrorPayload is the body of a failed GET /health
type ErrorPayload struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Check represents the health check result for one dependency
type Check struct {
	Status  string    `json:"status"` // "healthy" or "unhealthy"
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// HealthChecker checks one dependency
type HealthChecker interface {
	Check() Check
	Name() string
}

// ReadinessStatus is the body of GET /ready
type ReadinessStatus struct {
	Status    string           `json:"status"` // "ready" or "not_ready"
	Timestamp string           `json:"timestamp"`
	Services  map[string]Check `json:"services,omitempty"`
}
