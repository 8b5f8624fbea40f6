package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// checkConcurrency bounds how many checks CheckAll runs at once.
const checkConcurrency = 8

// Status is the health of one cache component. Higher is worse.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{"healthy", "degraded", "unhealthy"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Result is the outcome of one check.
type Result struct {
	Status  Status
	Message string
	// Details carries check-specific context such as the cache root.
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

func newResult(status Status, message string, err error) Result {
	return Result{Status: status, Message: message, Error: err, Timestamp: time.Now()}
}

// Healthy creates a healthy result.
func Healthy(message string) Result { return newResult(StatusHealthy, message, nil) }

// Degraded reports a cache that still serves calls, for example one whose
// directory has not been created yet.
func Degraded(message string) Result { return newResult(StatusDegraded, message, nil) }

// Unhealthy reports a cache that cannot persist records.
func Unhealthy(message string, err error) Result {
	return newResult(StatusUnhealthy, message, err)
}

// WithDetails returns r with details attached.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// WithDuration returns r with its duration set.
func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// Checker probes one component of a memoization cache.
//
// Contract:
// - Concurrency: Check may run concurrently with other checkers.
// - Context: Check returns an unhealthy result once ctx is done.
// - Errors: failures are reported in the Result, never by panicking.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a CheckerFunc reporting under name.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string                     { return f.name }
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// timed runs check and stamps the result with its duration.
func timed(check func() Result) Result {
	start := time.Now()
	r := check()
	return r.WithDuration(time.Since(start))
}

// CheckAll runs every checker concurrently and returns results by name.
func CheckAll(ctx context.Context, checkers ...Checker) map[string]Result {
	results := make(map[string]Result, len(checkers))
	var mu sync.Mutex

	var eg errgroup.Group
	eg.SetLimit(checkConcurrency)
	for _, c := range checkers {
		eg.Go(func() error {
			r := c.Check(ctx)
			mu.Lock()
			results[c.Name()] = r
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// Overall returns the worst status among results. No results is healthy.
func Overall(results map[string]Result) Status {
	worst := StatusHealthy
	for _, r := range results {
		if r.Status > worst {
			worst = r.Status
		}
	}
	return worst
}
