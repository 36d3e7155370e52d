package led

import (
	"log/slog"
	"sync/atomic"
)

// noop implements Indicator for systems without a usable LED. It remembers
// the level so the loop and status API behave as on real hardware.
type noop struct {
	logger *slog.Logger
	level  atomic.Bool
}

func newNoop(logger *slog.Logger) *noop {
	if logger == nil {
		logger = slog.Default()
	}
	return &noop{logger: logger}
}

// Set logs the request but drives nothing
func (n *noop) Set(on bool) error {
	n.level.Store(on)
	n.logger.Debug("LED control not available (no-op)", "on", on)
	return nil
}

func (n *noop) Level() bool { return n.level.Load() }

func (n *noop) Name() string { return "noop" }

func (n *noop) Close() error { return nil }
