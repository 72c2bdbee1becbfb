package services

import (
	"sync"
	"time"
)

const DefaultAutosaveDelay = time.Second

// Debouncer runs the most recently triggered function once the caller has
// been quiet for the configured delay. Triggers before MarkInitialized are
// dropped so a save never fires before the initial load completed.
type Debouncer struct {
	delay time.Duration

	mu          sync.Mutex
	timer       *time.Timer
	pending     func()
	initialized bool
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	return &Debouncer{delay: delay}
}

func (d *Debouncer) MarkInitialized() {
	d.mu.Lock()
	d.initialized = true
	d.mu.Unlock()
}

// Trigger cancels any pending run and schedules fn. It reports whether fn
// was scheduled.
func (d *Debouncer) Trigger(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	d.pending = fn
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A later Trigger replaced this timer; its own run will happen.
		if d.timer != t {
			d.mu.Unlock()
			return
		}
		run := d.pending
		d.pending = nil
		d.timer = nil
		d.mu.Unlock()

		if run != nil {
			run()
		}
	})
	d.timer = t
	return true
}

// Cancel drops the pending run, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

// Flush runs the pending function now, on the calling goroutine.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	run := d.pending
	d.pending = nil
	d.mu.Unlock()

	if run != nil {
		run()
	}
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
