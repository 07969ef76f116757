// Package schedule serializes page checks and drives them from a cron
// expression for long-running deployments.
package schedule

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/pagewatch/internal/metrics"
	"github.com/JakeFAU/pagewatch/internal/watcher"
)

// ErrRunInProgress is returned by Trigger while another check is running.
var ErrRunInProgress = errors.New("a page check is already running")

// Check runs one page check.
type Check interface {
	Run(ctx context.Context) (watcher.Report, error)
}

// Runner allows at most one check at a time and remembers the last report.
type Runner struct {
	check   Check
	site    string
	logger  *zap.Logger
	running sync.Mutex

	mu      sync.RWMutex
	last    Result
	hasLast bool
}

// Result is a finished check.
type Result struct {
	Report watcher.Report
	Err    error
}

// NewRunner wraps check. site labels the run metrics.
func NewRunner(check Check, site string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{check: check, site: site, logger: logger}
}

// Trigger runs a check unless one is already in progress.
func (r *Runner) Trigger(ctx context.Context) (watcher.Report, error) {
	if !r.running.TryLock() {
		return watcher.Report{}, ErrRunInProgress
	}
	defer r.running.Unlock()

	report, err := r.check.Run(ctx)
	metrics.ObserveRun(r.site, string(report.State), string(report.Classification),
		report.Duration, report.StartedAt.Add(report.Duration))

	r.mu.Lock()
	r.last, r.hasLast = Result{Report: report, Err: err}, true
	r.mu.Unlock()
	return report, err
}

// Last returns the most recent result; ok is false until a run finishes.
func (r *Runner) Last() (Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.hasLast
}

// Busy reports whether a check is running right now.
func (r *Runner) Busy() bool {
	if r.running.TryLock() {
		r.running.Unlock()
		return false
	}
	return true
}
