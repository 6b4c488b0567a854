package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how the TimeController paces its steps.
type Mode int

const (
	// RealTime waits one interval of wall-clock time between steps.
	RealTime Mode = iota
	// Accelerated runs steps back to back, as fast as listeners return.
	Accelerated
)

// TimeController drives a simulation loop at a fixed cadence and
// notifies registered listeners once per step. Simulated time itself is
// the engine's business; the controller only decides when the next step
// happens.
type TimeController struct {
	mu       sync.RWMutex
	Interval time.Duration
	Mode     Mode

	steps uint64

	// listeners must all be registered before Start.
	listeners []func(step uint64)
}

// NewTimeController constructs a controller.
func NewTimeController(interval time.Duration, mode Mode) *TimeController {
	return &TimeController{
		Interval: interval,
		Mode:     mode,
	}
}

// Steps returns the number of steps taken so far.
func (tc *TimeController) Steps() uint64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.steps
}

// AddListener registers a callback invoked on every step, in
// registration order.
func (tc *TimeController) AddListener(fn func(step uint64)) {
	tc.listeners = append(tc.listeners, fn)
}

// Start runs the stepping loop in a separate goroutine until ctx is
// cancelled or, when maxSteps is non-zero, that many steps have run.
// It returns a channel that is closed when the loop finishes.
func (tc *TimeController) Start(ctx context.Context, maxSteps uint64) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		var ticker *time.Ticker
		if tc.Mode == RealTime {
			ticker = time.NewTicker(tc.Interval)
			defer ticker.Stop()
		}

		for {
			tc.mu.RLock()
			taken := tc.steps
			tc.mu.RUnlock()
			if maxSteps > 0 && taken >= maxSteps {
				return
			}

			if ticker != nil {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			} else if ctx.Err() != nil {
				return
			}

			tc.mu.Lock()
			tc.steps++
			step := tc.steps
			tc.mu.Unlock()

			for _, fn := range tc.listeners {
				fn(step)
			}
		}
	}()
	return done
}
