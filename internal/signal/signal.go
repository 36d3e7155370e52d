// Package signal carries button and tick events from their producers to the
// control loop.
//
// Each event kind has a one-slot channel. Producers never block: a second
// event raised before the loop consumed the first collapses into it. Taking
// an event empties the slot, so an event raised during the loop's handling
// is kept for the next pass.
package signal

import (
	"context"
	"time"
)

// Signals holds the pending button and tick events.
type Signals struct {
	button chan struct{}
	tick   chan struct{}
	wake   chan struct{}
}

// New creates an empty set of signals.
func New() *Signals {
	return &Signals{
		button: make(chan struct{}, 1),
		tick:   make(chan struct{}, 1),
		wake:   make(chan struct{}, 1),
	}
}

func raise(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func take(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Press records a button press. Safe to call from any goroutine.
func (s *Signals) Press() {
	raise(s.button)
	raise(s.wake)
}

// Tick records a blink timer tick. Safe to call from any goroutine.
func (s *Signals) Tick() {
	raise(s.tick)
	raise(s.wake)
}

// Wake asks the loop to run a pass without raising an event, e.g. when a
// backend response or push payload is waiting.
func (s *Signals) Wake() {
	raise(s.wake)
}

// TakePress consumes a pending press.
func (s *Signals) TakePress() bool {
	return take(s.button)
}

// TakeTick consumes a pending tick.
func (s *Signals) TakeTick() bool {
	return take(s.tick)
}

// Woken fires when any producer has raised something since the last receive.
func (s *Signals) Woken() <-chan struct{} {
	return s.wake
}

// DefaultTickInterval is used when RunTicker is given a non-positive interval.
const DefaultTickInterval = 500 * time.Millisecond

// RunTicker raises a tick every interval until ctx is done.
func (s *Signals) RunTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-ctx.Done():
			return
		}
	}
}
