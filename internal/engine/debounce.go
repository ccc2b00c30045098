package engine

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period required before a search is issued.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer delays a call until input has been quiet for its duration.
// Each Debounce resets the timer; only the trailing call runs.
//
// fn runs on the timer's goroutine. Loop-owned state must not be touched
// there; post an event instead.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
	stopped  bool
}

// NewDebouncer creates a debouncer. A non-positive duration means
// DefaultDebounce.
func NewDebouncer(duration time.Duration) *Debouncer {
	if duration <= 0 {
		duration = DefaultDebounce
	}
	return &Debouncer{duration: duration}
}

// Duration returns the quiet period.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}

// Debounce schedules fn, replacing any pending call. It is a no-op after
// Stop.
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel drops any pending call. It reports whether a call was pending and
// has been prevented from running.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}

// Immediate cancels any pending call and runs fn synchronously.
func (d *Debouncer) Immediate(fn func()) {
	d.Cancel()
	fn()
}

// Stop cancels any pending call and disables the debouncer for good.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
