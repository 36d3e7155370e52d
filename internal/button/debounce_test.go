package button

import (
	"testing"
	"time"

	gpiod "github.com/warthog618/go-gpiocdev"
)

func TestDebouncerPressNeedsRelease(t *testing.T) {
	var d Debouncer
	t0 := time.Unix(0, 0)

	if !d.Feed(true, t0) {
		t.Fatal("first active level should be a press")
	}
	if d.Feed(true, t0.Add(time.Second)) {
		t.Error("repeated active level is not a new press")
	}
	if d.Feed(false, t0.Add(2*time.Second)) {
		t.Error("release is not a press")
	}
	if !d.Feed(true, t0.Add(3*time.Second)) {
		t.Error("active after release should be a press")
	}
}

func TestDebouncerWindow(t *testing.T) {
	d := Debouncer{Window: 50 * time.Millisecond}
	t0 := time.Unix(100, 0)

	presses := 0
	levels := []struct {
		active bool
		at     time.Duration
	}{
		{true, 0},
		{false, 5 * time.Millisecond}, // bounce
		{true, 10 * time.Millisecond}, // bounce
		{false, 100 * time.Millisecond},
		{true, 120 * time.Millisecond}, // bounce after release
		{false, 130 * time.Millisecond},
		{true, 300 * time.Millisecond},
	}
	for _, l := range levels {
		if d.Feed(l.active, t0.Add(l.at)) {
			presses++
		}
	}

	if presses != 2 {
		t.Errorf("presses = %d, want 2", presses)
	}
	if !d.Active() {
		t.Error("button should end active")
	}
}

func TestDebouncerShortTapThenPress(t *testing.T) {
	d := Debouncer{Window: 30 * time.Millisecond}
	t0 := time.Unix(100, 0)

	if !d.Feed(true, t0) {
		t.Fatal("tap should be a press")
	}
	// released inside the window
	if d.Feed(false, t0.Add(20*time.Millisecond)) {
		t.Error("release is not a press")
	}
	if d.Active() {
		t.Error("release inside the window was not recorded")
	}
	if !d.Feed(true, t0.Add(time.Second)) {
		t.Error("clean press after a short tap was lost")
	}
}

func TestIsActive(t *testing.T) {
	tests := []struct {
		edge      gpiod.LineEventType
		activeLow bool
		want      bool
	}{
		{gpiod.LineEventRisingEdge, false, true},
		{gpiod.LineEventFallingEdge, false, false},
		{gpiod.LineEventRisingEdge, true, false},
		{gpiod.LineEventFallingEdge, true, true},
	}
	for _, tt := range tests {
		if got := isActive(tt.edge, tt.activeLow); got != tt.want {
			t.Errorf("isActive(%v, %v) = %v, want %v", tt.edge, tt.activeLow, got, tt.want)
		}
	}
}

func TestOpenMissingChip(t *testing.T) {
	_, err := Open(Config{Chip: "gpiochip-does-not-exist", Line: 1}, func() {}, nil)
	if err == nil {
		t.Error("Open should fail without the chip")
	}
}
