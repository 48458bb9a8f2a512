// Package ratelimit implements the request budget shared by every outbound
// EDGAR request. EDGAR allows at most 10 requests per second per client and
// temporarily blocks callers that exceed it, so the budget is checked before
// each dispatch rather than after a failure.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Defaults matching the published EDGAR fair-access policy.
const (
	// DefaultRequestsPerSecond is the EDGAR request ceiling.
	DefaultRequestsPerSecond = 10

	// DefaultWindow is the length of the trailing window the ceiling applies to.
	DefaultWindow = time.Second
)

// Prometheus metrics for budget arbitration.
var (
	budgetWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "edgar_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a free request slot",
		Buckets: []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	budgetAcquiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgar_rate_limit_acquired_total",
		Help: "Total number of request slots handed out by budget backend",
	}, []string{"backend"})
)

// Budget gates outbound requests. Acquire blocks until the caller may send
// one request, or until ctx is done.
type Budget interface {
	Acquire(ctx context.Context) error
}

// Window is an in-process sliding window budget: no more than limit slots are
// handed out within any trailing window.
//
// Slots are reserved under the lock in arrival order. A caller whose slot lies
// in the future sleeps outside the lock, so callers are served FIFO and two
// callers can never both take the last free slot. A reservation abandoned by a
// cancelled context still counts against the window.
type Window struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	slots  []time.Time // ascending, at most limit entries
	now    func() time.Time
}

// NewWindow creates a budget allowing limit requests per window.
// Non-positive arguments fall back to the EDGAR defaults.
func NewWindow(limit int, window time.Duration) *Window {
	if limit <= 0 {
		limit = DefaultRequestsPerSecond
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Window{
		limit:  limit,
		window: window,
		slots:  make([]time.Time, 0, limit),
		now:    time.Now,
	}
}

// Limit returns the number of requests allowed per window.
func (w *Window) Limit() int {
	return w.limit
}

// Acquire reserves the next free slot and waits until it starts.
func (w *Window) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := w.now()
	slot := w.reserve(start)
	budgetAcquiredTotal.WithLabelValues("memory").Inc()

	wait := slot.Sub(start)
	budgetWaitSeconds.Observe(wait.Seconds())
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reserve records and returns the earliest slot that keeps the window within
// its limit. Slots are monotonic, and the slot limit positions later is
// always at least one window after this one.
func (w *Window) reserve(now time.Time) time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-w.window)
	drop := 0
	for drop < len(w.slots) && !w.slots[drop].After(cutoff) {
		drop++
	}
	if drop > 0 {
		w.slots = append(w.slots[:0], w.slots[drop:]...)
	}

	slot := now
	if len(w.slots) >= w.limit {
		// The oldest retained slot leaves the window one window after it started.
		if next := w.slots[len(w.slots)-w.limit].Add(w.window); next.After(slot) {
			slot = next
		}
		w.slots = append(w.slots[:0], w.slots[len(w.slots)-w.limit+1:]...)
	}
	w.slots = append(w.slots, slot)

	return slot
}
