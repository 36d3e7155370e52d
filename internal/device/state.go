package device

import "fmt"

// State is the committed lamp state.
type State uint32

// Lamp states. The zero value is Off so an uninitialised State never reads as
// a pattern the hardware cannot show.
const (
	Off State = iota
	On
	Blink
)

// Initial is the state the device boots into.
const Initial = Blink

var stateNames = [...]string{
	Off:   "off",
	On:    "on",
	Blink: "blink",
}

// String returns the wire label used by the backend ("off", "on", "blink").
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint32(s))
}

// Valid reports whether s is one of the three lamp states.
func (s State) Valid() bool {
	return s <= Blink
}

// Next returns the state a button press moves to: Blink -> Off -> On -> Blink.
func (s State) Next() State {
	switch s {
	case Blink:
		return Off
	case Off:
		return On
	default:
		return Blink
	}
}

// ParseState maps a wire label to a State.
func ParseState(label string) (State, bool) {
	switch label {
	case "off":
		return Off, true
	case "on":
		return On, true
	case "blink":
		return Blink, true
	default:
		return Off, false
	}
}

// MarshalText implements encoding.TextMarshaler so State encodes as its label.
func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid lamp state %d", uint32(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, ok := ParseState(string(text))
	if !ok {
		return fmt.Errorf("unknown lamp state %q", string(text))
	}
	*s = parsed
	return nil
}
