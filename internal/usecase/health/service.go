package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status     Status
	Checks     map[string]CheckResult
	QueueDepth *int64
}

// Service coordinates health checks.
type Service struct {
	db    DBPinger
	index IndexChecker
	queue QueueInspector
}

// New creates a Service. index and queue can be nil.
func New(db DBPinger, index IndexChecker, queue QueueInspector) *Service {
	return &Service{db: db, index: index, queue: queue}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["database"] = result(s.db.Ping(ctx))

	if s.index != nil {
		checks["index"] = result(s.index.IndexReady(ctx))
	}

	var depth *int64
	if s.queue != nil {
		n, err := s.queue.Depth(ctx)
		checks["queue"] = result(err)
		if err == nil {
			depth = &n
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, QueueDepth: depth}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
