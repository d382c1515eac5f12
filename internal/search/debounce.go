package search

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of calls into one call after a quiet window.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	gen     uint64
}

// NewDebouncer builds a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Trigger replaces any pending call with fn and restarts the window.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.gen++
	gen := d.gen
	d.pending = fn
	d.timer = time.AfterFunc(d.window, func() {
		d.fire(gen)
	})
}

// Flush runs the pending call immediately, if any.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.pending
	d.stopLocked()
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop drops the pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopLocked()
	d.mu.Unlock()
}

// Pending reports whether a call is waiting for the window to elapse.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()
	fn()
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
	d.gen++
}
