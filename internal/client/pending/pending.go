// Package pending tracks in-flight submissions so a second click on the
// same action is rejected instead of racing the first.
package pending

import (
	"errors"
	"sync/atomic"
)

// ErrPending is returned when an action is already in flight.
var ErrPending = errors.New("operation already in progress")

// Guard admits one in-flight operation at a time. The zero value is ready.
type Guard struct {
	busy atomic.Bool
}

// TryStart marks the guard busy. The returned done must be called exactly
// once when the operation completes; ok is false if another operation is
// still running.
func (g *Guard) TryStart() (done func(), ok bool) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, false
	}
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			g.busy.Store(false)
		}
	}, true
}

func (g *Guard) Busy() bool { return g.busy.Load() }

// Run executes fn under the guard or returns ErrPending.
func (g *Guard) Run(fn func() error) error {
	done, ok := g.TryStart()
	if !ok {
		return ErrPending
	}
	defer done()
	return fn()
}
