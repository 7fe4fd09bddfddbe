// Package debounce collapses bursts of calls into a single trailing
// invocation carrying the most recent argument.
package debounce

import (
	"sync"
	"time"
)

// Debouncer wraps a function so repeated calls within the wait window fire
// exactly once, with the arguments of the last call. Each call resets the
// pending window. A zero wait still defers execution to a separate timer
// tick rather than invoking synchronously.
type Debouncer[T any] struct {
	mu      sync.Mutex
	fn      func(T)
	wait    time.Duration
	timer   *time.Timer
	pending T
	armed   bool
}

// New creates a debouncer around fn with the given wait window
func New[T any](fn func(T), wait time.Duration) *Debouncer[T] {
	if wait < 0 {
		wait = 0
	}
	return &Debouncer[T]{fn: fn, wait: wait}
}

// Call schedules fn with arg after the wait window, superseding any pending
// invocation and its argument.
func (d *Debouncer[T]) Call(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = arg
	d.armed = true

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, d.fire)
}

// fire runs on the timer goroutine
func (d *Debouncer[T]) fire() {
	d.mu.Lock()
	if !d.armed {
		d.mu.Unlock()
		return
	}
	arg := d.pending
	d.armed = false
	var zero T
	d.pending = zero
	d.mu.Unlock()

	d.fn(arg)
}

// Flush invokes any pending call immediately, on the caller's goroutine
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if !d.armed {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	arg := d.pending
	d.armed = false
	var zero T
	d.pending = zero
	d.mu.Unlock()

	d.fn(arg)
}

// Stop cancels any pending invocation
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.armed = false
	var zero T
	d.pending = zero
}
