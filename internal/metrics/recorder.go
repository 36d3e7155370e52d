package metrics

import "github.com/smazurov/lampnode/internal/events"

// Recorder keeps the collectors in step with the event bus.
type Recorder struct {
	unsubs []func()
}

// NewRecorder subscribes to bus and sets the initial lamp state.
func NewRecorder(bus *events.Bus, initialState string) *Recorder {
	SetLampState(initialState)

	r := &Recorder{}
	r.unsubs = append(r.unsubs,
		bus.Subscribe(func(e events.StateChangedEvent) {
			SetLampState(e.To)
			IncStateChange(e.Source)
		}),
		bus.Subscribe(func(events.ButtonPressedEvent) {
			IncButtonPress()
		}),
		bus.Subscribe(func(e events.PushReceivedEvent) {
			IncPushReceived(e.Outcome)
		}),
		bus.Subscribe(func(e events.BackendRequestEvent) {
			ObserveBackendRequest(e.Operation, e.StatusCode, e.Seconds)
		}),
		bus.Subscribe(func(e events.IdentityResolvedEvent) {
			SetIdentityResolved(e.Slot)
		}),
	)
	return r
}

// Stop unsubscribes from the bus.
func (r *Recorder) Stop() {
	for _, unsub := range r.unsubs {
		unsub()
	}
	r.unsubs = nil
}
