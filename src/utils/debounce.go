package utils

import (
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// Debouncer
// -----------------------------------------------------------------------------

// Debouncer coalesces rapid repeated requests into one: each Schedule call
// cancels the pending task and restarts the window. A scheduled task handle
// replaces ad hoc timer bookkeeping at the call sites.
type Debouncer struct {
	Window time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// -----------------------------------------------------------------------------

func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{Window: window}
}

// -----------------------------------------------------------------------------

// Schedule arms fn to run after the window elapses, cancelling any pending
// task first. fn runs on the timer goroutine.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.Window, fn)
}

// -----------------------------------------------------------------------------

// Cancel drops the pending task, if any. Returns true when a task was
// actually cancelled before firing.
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
