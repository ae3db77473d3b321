// Package health monitors the availability of the remote backend.
//
// Each registered check runs in its own background goroutine at a configurable
// interval. Checks use failure/success thresholds (inspired by Kubernetes probe
// configuration) to avoid flapping: a check must fail consecutively
// failureThreshold times before being marked unhealthy, and succeed
// successThreshold times before being marked healthy again. The UI reads the
// aggregate state to decide whether to show a "server unavailable" banner.
package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc is a health check function. It should return nil if the checked
// dependency is reachable, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// checkState holds the configuration and runtime state for a single check.
//
// Concurrency model: run() is called from exactly one goroutine (the ticker).
// The counters (consecutiveFails, consecutiveOK) are only accessed by run(),
// so they need no synchronization. The healthy flag and lastErr are read by
// Healthy/Failures from arbitrary goroutines, so they use atomic operations.
type checkState struct {
	name             string
	timeout          time.Duration
	check            CheckFunc
	failureThreshold int
	successThreshold int

	// healthy is read by callers (atomic load) and written by run() (atomic store).
	healthy atomic.Bool

	// lastErr stores the most recent error from run(). Read by callers via
	// atomic load; written by run() via atomic store.
	lastErr atomic.Pointer[error]

	// counters are only accessed from the single run() goroutine.
	consecutiveFails int
	consecutiveOK    int
}

func (c *checkState) isHealthy() bool {
	return c.healthy.Load()
}

func (c *checkState) getLastError() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// run executes the check once and updates thresholds accordingly.
// Must be called from a single goroutine.
func (c *checkState) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.check(checkCtx)
	c.lastErr.Store(&err)

	if err != nil {
		c.consecutiveOK = 0
		c.consecutiveFails++
		if c.consecutiveFails >= c.failureThreshold {
			c.healthy.Store(false)
		}
	} else {
		c.consecutiveFails = 0
		c.consecutiveOK++
		if c.consecutiveOK >= c.successThreshold {
			c.healthy.Store(true)
		}
	}
}

// Monitor manages a set of availability checks against remote dependencies.
type Monitor struct {
	// mu protects the check slice and cancel. Only held during registration
	// (before Start) and in Start/Stop. Readers snapshot the slice under RLock
	// then release immediately.
	mu     sync.RWMutex
	checks []*checkState
	cancel context.CancelFunc
}

// New creates a Monitor with no checks registered.
func New() *Monitor {
	return &Monitor{}
}

// AddCheck registers an availability check. Checks start in the healthy state
// and flip to unhealthy only after three consecutive failures.
func (m *Monitor) AddCheck(name string, timeout time.Duration, check CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := &checkState{
		name:             name,
		timeout:          timeout,
		check:            check,
		failureThreshold: 3,
		successThreshold: 1,
	}
	c.healthy.Store(true) // assume healthy until proven otherwise
	m.checks = append(m.checks, c)
}

// Start begins running all registered checks in background goroutines at the
// given interval. Typically Start is called once after all checks are
// registered.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.cancel = cancel
	checks := make([]*checkState, len(m.checks))
	copy(checks, m.checks)
	m.mu.Unlock()

	for _, c := range checks {
		go runCheck(ctx, c, interval)
	}
}

// runCheck periodically executes a single check until the context is cancelled.
func runCheck(ctx context.Context, c *checkState, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start.
	c.run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.run(ctx)
		}
	}
}

// Healthy reports whether every registered check is currently passing.
func (m *Monitor) Healthy() bool {
	m.mu.RLock()
	checks := m.checks
	m.mu.RUnlock()

	for _, c := range checks {
		if !c.isHealthy() {
			return false
		}
	}
	return true
}

// Failures returns a map of check name to error message for every check that
// is currently unhealthy. It uses the stored last error from run() rather than
// re-executing the check function.
func (m *Monitor) Failures() map[string]string {
	m.mu.RLock()
	checks := make([]*checkState, len(m.checks))
	copy(checks, m.checks)
	m.mu.RUnlock()

	failures := make(map[string]string)
	for _, c := range checks {
		if c.isHealthy() {
			continue
		}
		if err := c.getLastError(); err != nil {
			failures[c.name] = err.Error()
		} else {
			failures[c.name] = "unhealthy"
		}
	}
	return failures
}

// Stop cancels all background check goroutines. It is safe to call Stop
// multiple times.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}
