// Package led drives the lamp's physical indicator.
package led

// Indicator is a single on/off output.
type Indicator interface {
	// Set drives the output high (on) or low.
	Set(on bool) error

	// Level returns the last level written. Safe for concurrent use.
	Level() bool

	// Name describes the backing hardware, for logs and status.
	Name() string

	Close() error
}

// Toggle inverts the indicator's level.
func Toggle(ind Indicator) error {
	return ind.Set(!ind.Level())
}
