// Package controller runs the lamp's control loop: it is the only goroutine
// that mutates the lamp state and the identity cache.
package controller

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/smazurov/lampnode/internal/device"
	"github.com/smazurov/lampnode/internal/events"
	"github.com/smazurov/lampnode/internal/identity"
	"github.com/smazurov/lampnode/internal/led"
	"github.com/smazurov/lampnode/internal/signal"
)

const defaultPollInterval = 100 * time.Millisecond

// Dispatcher runs completed backend callbacks.
type Dispatcher interface {
	Dispatch() int
}

// Syncer is the part of the backend client the loop drives.
type Syncer interface {
	SyncInstallationRecord()
	ResolveUser() identity.ObjectID
}

// Poller drains inbound push notifications.
type Poller interface {
	Poll() int
}

// Options wires a Loop.
type Options struct {
	Machine    *device.Machine
	Cache      *identity.Cache
	Dispatcher Dispatcher
	Syncer     Syncer
	Poller     Poller
	Signals    *signal.Signals
	Indicator  led.Indicator
	Bus        *events.Bus
	Logger     *slog.Logger

	// PollInterval bounds how long the loop sleeps without a wake-up.
	PollInterval time.Duration
}

// Loop is the cooperative control loop.
type Loop struct {
	opts     Options
	logger   *slog.Logger
	lastStep atomic.Int64
}

// New creates a loop.
func New(opts Options) *Loop {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{opts: opts, logger: logger}
}

// Step runs one pass of the loop.
func (l *Loop) Step() {
	defer l.lastStep.Store(time.Now().UnixNano())

	if l.opts.Dispatcher != nil {
		l.opts.Dispatcher.Dispatch()
	}

	if l.opts.Poller != nil {
		l.opts.Poller.Poll()
	}

	if l.opts.Syncer != nil && l.opts.Cache.Has(identity.Installation) && !l.opts.Cache.Has(identity.User) {
		l.opts.Syncer.ResolveUser()
	}

	if l.opts.Signals.TakePress() {
		if l.opts.Bus != nil {
			l.opts.Bus.Publish(events.ButtonPressedEvent{Timestamp: time.Now().Format(time.RFC3339)})
		}
		l.opts.Machine.Press()
	}

	if l.opts.Signals.TakeTick() && l.opts.Machine.State() == device.Blink {
		if err := led.Toggle(l.opts.Indicator); err != nil {
			l.logger.Warn("Failed to toggle indicator", "error", err)
		}
	}

	l.reconcile()
}

// PollInterval returns the effective idle poll interval.
func (l *Loop) PollInterval() time.Duration {
	return l.opts.PollInterval
}

// Alive reports whether a Step completed within maxAge. Safe for concurrent
// use.
func (l *Loop) Alive(maxAge time.Duration) bool {
	last := l.lastStep.Load()
	return last != 0 && time.Since(time.Unix(0, last)) <= maxAge
}

// reconcile forces the indicator to match Off and On. Blink is left to the
// tick handling.
func (l *Loop) reconcile() {
	var want bool
	switch l.opts.Machine.State() {
	case device.Off:
		want = false
	case device.On:
		want = true
	default:
		return
	}

	if l.opts.Indicator.Level() == want {
		return
	}
	if err := l.opts.Indicator.Set(want); err != nil {
		l.logger.Warn("Failed to set indicator", "on", want, "error", err)
	}
}

// Run starts the installation sync and runs Step on every wake-up or poll
// interval until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("Control loop started",
		"state", l.opts.Machine.State().String(),
		"indicator", l.opts.Indicator.Name(),
		"poll_interval", l.opts.PollInterval)

	if l.opts.Syncer != nil {
		l.opts.Syncer.SyncInstallationRecord()
	}

	ticker := time.NewTicker(l.opts.PollInterval)
	defer ticker.Stop()

	for {
		l.Step()

		select {
		case <-ctx.Done():
			l.logger.Info("Control loop stopped")
			return ctx.Err()
		case <-l.opts.Signals.Woken():
		case <-ticker.C:
		}
	}
}
