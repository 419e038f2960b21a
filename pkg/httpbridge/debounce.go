package httpbridge

import (
	"sync"
	"time"
)

// Debouncer collapses rapid repeats of the same action and refuses a
// new attempt while one is still in flight. The popup disables its
// buttons too, but the bridge is the surface we own, so the guard
// lives here as well.
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	last     map[string]time.Time
	inFlight map[string]bool
	now      func() time.Time
}

// NewDebouncer creates a debouncer with the given collapse window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:   window,
		last:     make(map[string]time.Time),
		inFlight: make(map[string]bool),
		now:      time.Now,
	}
}

// TryStart reports whether the action may run now. A true return means
// the caller owns the action and must call Finish when done.
func (d *Debouncer) TryStart(action string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inFlight[action] {
		return false
	}

	now := d.now()
	if last, ok := d.last[action]; ok && now.Sub(last) < d.window {
		return false
	}

	d.last[action] = now
	d.inFlight[action] = true
	return true
}

// Finish marks the action as no longer in flight.
func (d *Debouncer) Finish(action string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inFlight[action] = false
}
