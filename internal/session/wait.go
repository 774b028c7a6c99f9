package session

import (
	"context"
	"errors"
)

// ErrLoopStopped is returned by WaitIdle when the loop exits first.
var ErrLoopStopped = errors.New("session loop stopped")

// WaitIdle blocks until c, driven by loop, reaches the Idle state and
// returns the view at that moment.
func WaitIdle(ctx context.Context, c *Controller, loop *Loop) (View, error) {
	idle := make(chan View, 1)
	var unsubscribe func()

	subscribed := loop.Call(func() {
		unsubscribe = c.Subscribe(func(v View) {
			if v.State != Idle {
				return
			}
			select {
			case idle <- v:
			default:
			}
		})
	})
	if !subscribed {
		return View{}, ErrLoopStopped
	}
	defer loop.Dispatch(unsubscribe)

	select {
	case v := <-idle:
		return v, nil
	case <-loop.Done():
		return View{}, ErrLoopStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}
