package events

// Event type constants for kelindar/event.
const (
	TypeStateChanged uint32 = iota + 1
	TypeIdentityResolved
	TypePushReceived
	TypeBackendRequest
	TypeButtonPressed
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StateChangedEvent is published on every committed lamp state, including
// commits that keep the same value.
type StateChangedEvent struct {
	From      string `json:"from" example:"blink" doc:"Previous lamp state"`
	To        string `json:"to" example:"off" doc:"Committed lamp state"`
	Source    string `json:"source" example:"button" doc:"What caused the change: button or push"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Commit timestamp"`
}

// Type returns the event type identifier for StateChangedEvent.
func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }

// IdentityResolvedEvent is published once per identity slot, when the backend
// object id has been discovered and cached.
type IdentityResolvedEvent struct {
	Slot      string `json:"slot" example:"installation" doc:"Identity slot: installation, user or model"`
	ObjectID  string `json:"object_id" example:"Ed1nuqPvcm" doc:"Cached backend object id"`
	Truncated bool   `json:"truncated" doc:"Whether the backend value exceeded the id capacity"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Resolution timestamp"`
}

// Type returns the event type identifier for IdentityResolvedEvent.
func (e IdentityResolvedEvent) Type() uint32 { return TypeIdentityResolved }

// PushReceivedEvent is published for each inbound push payload.
type PushReceivedEvent struct {
	Label     string `json:"label,omitempty" example:"on" doc:"Alert label extracted from the payload"`
	Outcome   string `json:"outcome" example:"applied" doc:"applied, unknown_label or malformed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Receive timestamp"`
}

// Type returns the event type identifier for PushReceivedEvent.
func (e PushReceivedEvent) Type() uint32 { return TypePushReceived }

// BackendRequestEvent is published when a backend request completes.
type BackendRequestEvent struct {
	Operation  string  `json:"operation" example:"persist_state" doc:"Logical backend operation"`
	Method     string  `json:"method" example:"POST" doc:"HTTP method"`
	StatusCode int     `json:"status_code" example:"201" doc:"HTTP status, 0 on transport error"`
	Error      string  `json:"error,omitempty" doc:"Transport error, if any"`
	Seconds    float64 `json:"seconds" doc:"Request duration in seconds"`
}

// Type returns the event type identifier for BackendRequestEvent.
func (e BackendRequestEvent) Type() uint32 { return TypeBackendRequest }

// ButtonPressedEvent is published when the control loop consumes a debounced
// button press.
type ButtonPressedEvent struct {
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for ButtonPressedEvent.
func (e ButtonPressedEvent) Type() uint32 { return TypeButtonPressed }
