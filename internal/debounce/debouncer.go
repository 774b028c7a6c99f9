package debounce

import (
	"sync"
	"time"
)

// Option configures a Debouncer.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock replaces the system clock, typically with a ManualClock.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// Debouncer delays op until Call has not been invoked for the wait window.
// Only the value passed to the last Call reaches op.
type Debouncer[T any] struct {
	op    func(T)
	wait  time.Duration
	clock Clock

	mu         sync.Mutex
	timer      Timer
	pending    T
	hasPending bool
	generation uint64
}

// New wraps op. A wait of zero or less runs op on the next timer tick,
// never synchronously inside Call.
func New[T any](op func(T), wait time.Duration, opts ...Option) *Debouncer[T] {
	o := options{clock: SystemClock()}
	for _, opt := range opts {
		opt(&o)
	}
	if wait < 0 {
		wait = 0
	}
	return &Debouncer[T]{op: op, wait: wait, clock: o.clock}
}

// Call replaces any scheduled run with one for v.
func (d *Debouncer[T]) Call(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	gen := d.generation
	d.pending = v
	d.hasPending = true
	d.timer = d.clock.AfterFunc(d.wait, func() { d.fire(gen) })
}

// Cancel drops the scheduled run, if any.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.generation++
	var zero T
	d.pending = zero
	d.hasPending = false
}

// Pending returns the value waiting for the window to expire. A value
// stays pending until op has returned for it.
func (d *Debouncer[T]) Pending() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.hasPending
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	// A timer that lost the race with Stop must not run a superseded value.
	if gen != d.generation || !d.hasPending {
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.mu.Unlock()

	d.op(v)

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen == d.generation {
		var zero T
		d.pending = zero
		d.hasPending = false
		d.timer = nil
	}
}
