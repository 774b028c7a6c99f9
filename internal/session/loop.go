package session

import (
	"context"
	"sync"
)

// Dispatcher posts work onto the controller's execution context.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function such as fyne.Do to a Dispatcher.
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// Loop runs posted functions one at a time on a single goroutine.
type Loop struct {
	queue    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a stopped loop; call Run or Start.
func NewLoop() *Loop {
	return &Loop{
		queue: make(chan func(), 64),
		done:  make(chan struct{}),
	}
}

// Start runs the loop on a new goroutine until ctx is done.
func (l *Loop) Start(ctx context.Context) {
	go l.Run(ctx)
}

// Run processes posted functions until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	defer l.stopOnce.Do(func() { close(l.done) })
	for {
		select {
		case fn := <-l.queue:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// Dispatch queues fn. Work posted after the loop stopped is dropped.
func (l *Loop) Dispatch(fn func()) {
	select {
	case l.queue <- fn:
	case <-l.done:
	}
}

// Call runs fn on the loop and waits for it. It reports false when the
// loop stopped before fn ran.
func (l *Loop) Call(fn func()) bool {
	ran := make(chan struct{})
	l.Dispatch(func() {
		fn()
		close(ran)
	})
	select {
	case <-ran:
		return true
	case <-l.done:
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
