package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
)

type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

type ProbeRunner struct {
	checkers    []Checker
	timeout     time.Duration
	gracePeriod time.Duration
	startedAt   time.Time
	now         func() time.Time
}

// NewProbeRunner ignores nil checkers so optional dependencies can be passed
// unconditionally.
func NewProbeRunner(timeout, gracePeriod time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = time.Second
	}
	active := make([]Checker, 0, len(checkers))
	for _, c := range checkers {
		if c != nil {
			active = append(active, c)
		}
	}
	return &ProbeRunner{
		checkers:    active,
		timeout:     timeout,
		gracePeriod: gracePeriod,
		startedAt:   time.Now(),
		now:         time.Now,
	}
}

// Ready runs every checker concurrently, each under its own timeout.
// Results keep checker order.
func (r *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	if r == nil {
		return true, nil
	}
	if r.gracePeriod > 0 && r.now().Sub(r.startedAt) < r.gracePeriod {
		observability.RecordHealthCheckResult(ctx, "startup_grace", "unhealthy")
		return false, []CheckResult{{Name: "startup_grace", Healthy: false, Error: "startup grace period active"}}
	}
	results := make([]CheckResult, len(r.checkers))
	var g errgroup.Group
	for i, c := range r.checkers {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			started := r.now()
			results[i] = c.Check(checkCtx)
			observability.RecordHealthCheckDuration(ctx, results[i].Name, r.now().Sub(started))
			return nil
		})
	}
	_ = g.Wait()

	allHealthy := true
	for _, res := range results {
		outcome := "healthy"
		if !res.Healthy {
			outcome = "unhealthy"
			allHealthy = false
		}
		observability.RecordHealthCheckResult(ctx, res.Name, outcome)
	}
	return allHealthy, results
}
