package device

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/smazurov/lampnode/internal/events"
)

// Source identifies which authority caused a state change.
type Source string

// State change sources.
const (
	SourceButton Source = "button"
	SourcePush   Source = "push"
)

// Delivery reports what happened to a persistence request. It never says
// whether the backend stored the event: writes are fire-and-forget.
type Delivery int

// Delivery outcomes.
const (
	// DeliverySkipped means no request was sent (identity not yet resolved).
	DeliverySkipped Delivery = iota
	// DeliveryEnqueued means a request was handed to the transport.
	DeliveryEnqueued
)

func (d Delivery) String() string {
	if d == DeliveryEnqueued {
		return "enqueued"
	}
	return "skipped"
}

// Persister stores a committed state remotely.
type Persister interface {
	PersistState(state State) Delivery
}

// PushEvent is a decoded push notification. Recognized is false when the
// label did not map to a lamp state.
type PushEvent struct {
	Label      string
	State      State
	Recognized bool
}

// Machine holds the committed lamp state and applies button and push
// transitions. Mutating methods must be called from the control loop
// goroutine; State may be read from anywhere.
type Machine struct {
	state     atomic.Uint32
	persister Persister
	bus       *events.Bus
	logger    *slog.Logger
}

// NewMachine creates a machine in the Initial state.
func NewMachine(persister Persister, bus *events.Bus, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Machine{
		persister: persister,
		bus:       bus,
		logger:    logger,
	}
	m.state.Store(uint32(Initial))
	return m
}

// State returns the committed state.
func (m *Machine) State() State {
	return State(m.state.Load())
}

// Press applies the fixed button rotation and returns the new state.
func (m *Machine) Press() State {
	next := m.State().Next()
	m.commit(next, SourceButton)
	return next
}

// ApplyPush sets the state requested by a push notification. Unrecognized
// labels are logged and dropped; the returned bool reports whether a commit
// happened.
func (m *Machine) ApplyPush(ev PushEvent) (State, bool) {
	if !ev.Recognized {
		m.logger.Info("Ignoring push with unknown state", "label", ev.Label)
		return m.State(), false
	}
	m.commit(ev.State, SourcePush)
	return ev.State, true
}

// commit stores the state, announces it and hands it to the persister.
// Persisting happens even when the state did not change value.
func (m *Machine) commit(to State, source Source) {
	from := State(m.state.Swap(uint32(to)))

	m.logger.Info("Lamp state committed", "from", from.String(), "to", to.String(), "source", string(source))

	if m.bus != nil {
		m.bus.Publish(events.StateChangedEvent{
			From:      from.String(),
			To:        to.String(),
			Source:    string(source),
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}

	if m.persister == nil {
		return
	}
	if d := m.persister.PersistState(to); d == DeliverySkipped {
		m.logger.Debug("State not persisted, identity unresolved", "state", to.String())
	}
}
