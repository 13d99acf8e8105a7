package healthService

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/pkg/health"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// RootStatus is the body of GET /
type RootStatus struct {
	Service   string `json:"service"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// HealthService combines the liveness probe with dependency checks
type HealthService struct {
	name     string
	probe    *health.Probe
	clock    health.Clock
	checkers []health.HealthChecker
	logger   *logger.Logger
}

// NewHealthService creates a new health service
func NewHealthService(name string, readiness health.Readiness, clock health.Clock, log *logger.Logger) *HealthService {
	if clock == nil {
		clock = health.SystemClock
	}
	return &HealthService{
		name:   name,
		probe:  health.NewProbe(readiness, clock),
		clock:  clock,
		logger: log.Named("health-service"),
	}
}

// AddChecker adds a dependency checker used by Ready
func (s *HealthService) AddChecker(checker health.HealthChecker) {
	s.checkers = append(s.checkers, checker)
}

// Health runs the liveness probe
func (s *HealthService) Health(ctx context.Context) health.Result {
	res := s.probe.Check(ctx)
	if res.Outcome == health.OutcomeFailed {
		s.logger.Error("Health probe failed", zap.Error(res.Err))
	}
	return res
}

// Root describes the running service
func (s *HealthService) Root(_ context.Context) (RootStatus, error) {
	ts, err := health.FormatTimestamp(s.clock.Now())
	if err != nil {
		return RootStatus{}, err
	}
	return RootStatus{Service: s.name, Status: "running", Timestamp: ts}, nil
}

// Ready checks every registered dependency
func (s *HealthService) Ready(_ context.Context) health.ReadinessStatus {
	ts, err := health.FormatTimestamp(s.clock.Now())
	if err != nil {
		ts = time.Now().UTC().Format(time.RFC3339)
	}

	status := health.ReadinessStatus{
		Status:    "ready",
		Timestamp: ts,
		Services:  make(map[string]health.Check, len(s.checkers)),
	}

	for _, checker := range s.checkers {
		check := checker.Check()
		status.Services[checker.Name()] = check

		if check.Status != "healthy" {
			status.Status = "not_ready"
		}
	}

	return status
}
