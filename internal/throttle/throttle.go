// Package throttle rate-limits a high-frequency producer to at most one
// forwarded call per interval, always forwarding the latest value.
package throttle

import (
	"sync"
	"time"
)

// Throttle forwards values to fn on the trailing edge of each window. The
// first Call in an idle period opens a window; when it closes, the most
// recent value seen during the window is forwarded exactly once.
type Throttle[T any] struct {
	interval time.Duration
	fn       func(T)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	latest  T
	stopped bool
}

// New creates a throttle that forwards to fn at most once per interval
func New[T any](interval time.Duration, fn func(T)) *Throttle[T] {
	return &Throttle[T]{
		interval: interval,
		fn:       fn,
	}
}

// Call records v as the latest value and schedules a forward if none is
// scheduled yet.
func (t *Throttle[T]) Call(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}

	t.latest = v
	t.pending = true

	if t.timer == nil {
		t.gen++
		gen := t.gen
		t.timer = time.AfterFunc(t.interval, func() { t.fire(gen) })
	}
}

// Flush forwards the pending value now, if there is one, and closes the
// current window.
func (t *Throttle[T]) Flush() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
		t.gen++
	}
	if !t.pending {
		t.mu.Unlock()
		return
	}
	v := t.latest
	t.pending = false
	t.mu.Unlock()

	t.fn(v)
}

// Stop discards any pending value. Later calls are ignored.
func (t *Throttle[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	t.pending = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
		t.gen++
	}
}

func (t *Throttle[T]) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.timer == nil {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	if !t.pending {
		t.mu.Unlock()
		return
	}
	v := t.latest
	t.pending = false
	t.mu.Unlock()

	t.fn(v)
}
