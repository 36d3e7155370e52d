// Package button turns GPIO edges from the lamp's push button into debounced
// press events.
package button

import "time"

// Debouncer accepts raw line levels and reports presses. Every level change
// is recorded. A press is an inactive-to-active change whose inactive level
// lasted at least Window, so chatter on either edge is not reported.
type Debouncer struct {
	Window time.Duration

	active  bool
	changed time.Time
}

// Feed records a raw level (true means active) observed at t and reports
// whether it completes a press.
func (d *Debouncer) Feed(active bool, t time.Time) bool {
	if active == d.active {
		return false
	}
	settled := d.changed.IsZero() || t.Sub(d.changed) >= d.Window

	d.active = active
	d.changed = t
	return active && settled
}

// Active reports the last raw level.
func (d *Debouncer) Active() bool {
	return d.active
}
