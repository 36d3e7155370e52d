package push

import (
	"errors"
	"testing"

	"github.com/smazurov/lampnode/internal/device"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantState  device.State
		wantLabel  string
		recognized bool
	}{
		{"on", `{"data":"{\"alert\":\"on\"}"}`, device.On, "on", true},
		{"off", `{"data":"{\"alert\":\"off\"}"}`, device.Off, "off", true},
		{"blink", `{"data":"{\"alert\":\"blink\"}"}`, device.Blink, "blink", true},
		{"unknown label", `{"data":"{\"alert\":\"purple\"}"}`, device.Off, "purple", false},
		{"case sensitive", `{"data":"{\"alert\":\"ON\"}"}`, device.Off, "ON", false},
		{"inline object", `{"data":{"alert":"blink"}}`, device.Blink, "blink", true},
		{"extra fields", `{"time":"now","data":"{\"badge\":1,\"alert\":\"on\"}","push_id":"x"}`, device.On, "on", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Parse([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if ev.Recognized != tt.recognized {
				t.Errorf("Recognized = %v, want %v", ev.Recognized, tt.recognized)
			}
			if ev.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", ev.Label, tt.wantLabel)
			}
			if tt.recognized && ev.State != tt.wantState {
				t.Errorf("State = %v, want %v", ev.State, tt.wantState)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	payloads := map[string]string{
		"not json":          `alert on`,
		"array":             `["on"]`,
		"null":              `null`,
		"missing data":      `{"alert":"on"}`,
		"data not object":   `{"data":"just text"}`,
		"data number":       `{"data":5}`,
		"missing alert":     `{"data":"{\"badge\":1}"}`,
		"alert not string":  `{"data":"{\"alert\":3}"}`,
		"nested truncation": `{"data":"{\"alert\":\"o"}`,
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(payload))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Parse(%s) error = %v, want ErrMalformed", payload, err)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	for _, label := range []string{"off", "on", "blink"} {
		raw, err := Encode(label)
		if err != nil {
			t.Fatalf("Encode(%q) error = %v", label, err)
		}
		ev, err := Parse(raw)
		if err != nil {
			t.Fatalf("Parse(Encode(%q)) error = %v", label, err)
		}
		if !ev.Recognized || ev.State.String() != label {
			t.Errorf("round trip of %q gave %+v", label, ev)
		}
	}
}
