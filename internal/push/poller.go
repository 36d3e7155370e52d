package push

import (
	"log/slog"
	"time"

	"github.com/smazurov/lampnode/internal/device"
	"github.com/smazurov/lampnode/internal/events"
)

// Source hands out the push payloads buffered since the last call.
// Drain must not block.
type Source interface {
	Drain() [][]byte
}

// Applier receives decoded push events.
type Applier interface {
	ApplyPush(ev device.PushEvent) (device.State, bool)
}

// Push outcomes reported on the event bus.
const (
	OutcomeApplied      = "applied"
	OutcomeUnknownLabel = "unknown_label"
	OutcomeMalformed    = "malformed"
)

// Poller feeds buffered notifications from a Source into the state machine.
type Poller struct {
	source  Source
	applier Applier
	bus     *events.Bus
	logger  *slog.Logger
}

// NewPoller creates a poller. A nil source makes Poll a no-op, which is how
// the device runs when no push transport is configured.
func NewPoller(source Source, applier Applier, bus *events.Bus, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		source:  source,
		applier: applier,
		bus:     bus,
		logger:  logger,
	}
}

// Poll drains the source once and returns how many payloads it handled.
func (p *Poller) Poll() int {
	if p.source == nil {
		return 0
	}

	payloads := p.source.Drain()
	for _, raw := range payloads {
		p.handle(raw)
	}
	return len(payloads)
}

func (p *Poller) handle(raw []byte) {
	p.logger.Debug("Push received", "payload", string(raw))

	ev, err := Parse(raw)
	if err != nil {
		p.logger.Warn("Dropping push payload", "error", err)
		p.publish("", OutcomeMalformed)
		return
	}

	if _, applied := p.applier.ApplyPush(ev); applied {
		p.publish(ev.Label, OutcomeApplied)
		return
	}
	p.publish(ev.Label, OutcomeUnknownLabel)
}

func (p *Poller) publish(label, outcome string) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(events.PushReceivedEvent{
		Label:     label,
		Outcome:   outcome,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
