package nats

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/lampnode/internal/events"
)

// Bridge forwards committed lamp states from the event bus to NATS so local
// tools can follow the lamp without polling the API.
type Bridge struct {
	url            string
	installationID string
	eventBus       *events.Bus
	conn           *nats.Conn
	unsubscribe    func()
	reconnectWait  time.Duration
	logger         *slog.Logger
	mu             sync.Mutex
}

// NewBridge creates a new EventBus-to-NATS bridge.
func NewBridge(url, installationID string, eventBus *events.Bus, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		url:            url,
		installationID: installationID,
		eventBus:       eventBus,
		reconnectWait:  defaultReconnectWait,
		logger:         logger.With("component", "nats-bridge"),
	}
}

// Start connects to NATS and subscribes to state changes on the bus. When
// the server is not up yet the client retries in the background and states
// published meanwhile are held in the reconnect buffer.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := nats.Connect(b.url,
		nats.Name("lampnode-bridge"),
		nats.ReconnectWait(b.reconnectWait),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.ConnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS bridge connected")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS bridge disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS bridge reconnected")
		}),
	)
	if err != nil {
		return err
	}

	b.conn = conn
	b.unsubscribe = b.eventBus.Subscribe(b.handleState)
	b.logger.Info("NATS bridge started", "url", b.url, "subject", SubjectState(b.installationID), "connected", conn.IsConnected())
	return nil
}

// handleState publishes one state change.
func (b *Bridge) handleState(e events.StateChangedEvent) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	if conn == nil {
		return
	}

	data, err := StateMessage{
		InstallationID: b.installationID,
		Timestamp:      e.Timestamp,
		From:           e.From,
		State:          e.To,
		Source:         e.Source,
	}.Marshal()
	if err != nil {
		b.logger.Warn("Failed to marshal state", "error", err)
		return
	}

	if err := conn.Publish(SubjectState(b.installationID), data); err != nil {
		b.logger.Warn("Failed to publish state", "error", err)
		return
	}
	b.logger.Debug("Published state", "state", e.To, "source", e.Source)
}

// Stop unsubscribes from the bus and closes the connection.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	b.logger.Info("NATS bridge stopped")
}

// IsConnected returns true if the bridge is connected to NATS.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}
