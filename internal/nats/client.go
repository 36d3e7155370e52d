package nats

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	defaultQueueLimit    = 64
	defaultReconnectWait = 2 * time.Second
)

// PushSubscriber receives push notifications for one installation and
// buffers them until the control loop drains them.
// Gracefully degrades when NATS is unavailable.
type PushSubscriber struct {
	url            string
	installationID string
	conn           *nats.Conn
	sub            *nats.Subscription
	logger         *slog.Logger
	onMessage      func()
	limit          int
	reconnectWait  time.Duration

	mu        sync.Mutex
	queue     [][]byte
	dropped   int
	connected bool
}

// NewPushSubscriber creates a subscriber. onMessage, if set, is called after
// each buffered message and must not block.
func NewPushSubscriber(url, installationID string, onMessage func(), logger *slog.Logger) *PushSubscriber {
	if logger == nil {
		logger = slog.Default()
	}

	return &PushSubscriber{
		url:            url,
		installationID: installationID,
		onMessage:      onMessage,
		limit:          defaultQueueLimit,
		reconnectWait:  defaultReconnectWait,
		logger:         logger.With("component", "nats-push", "installation_id", installationID),
	}
}

// Connect subscribes to the push subject. An unreachable server is not an
// error: the client keeps retrying in the background and the subscription
// becomes live on the first successful connect. The subscriber stays usable
// (always empty) when this fails.
func (s *PushSubscriber) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts := []nats.Option{
		nats.Name("lampnode-push-" + s.installationID),
		nats.ReconnectWait(s.reconnectWait),
		nats.MaxReconnects(-1), // Infinite reconnects
		nats.RetryOnFailedConnect(true),
		nats.ConnectHandler(func(_ *nats.Conn) {
			s.setConnected(true)
			s.logger.Info("NATS connected")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.setConnected(false)
			if err != nil {
				s.logger.Warn("NATS disconnected", "error", err)
			} else {
				s.logger.Debug("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			s.setConnected(true)
			s.logger.Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(s.url, opts...)
	if err != nil {
		s.logger.Warn("Failed to connect to NATS, push notifications disabled", "error", err)
		return err
	}

	subject := SubjectPush(s.installationID)
	sub, err := conn.Subscribe(subject, s.handle)
	if err != nil {
		conn.Close()
		s.logger.Warn("Failed to subscribe to push subject", "subject", subject, "error", err)
		return err
	}

	s.conn = conn
	s.sub = sub
	s.connected = conn.IsConnected()
	if s.connected {
		// make sure the server has the subscription before returning
		if err := conn.FlushTimeout(time.Second); err != nil {
			s.logger.Debug("Flush after subscribe failed", "error", err)
		}
		s.logger.Info("Subscribed to push notifications", "url", s.url, "subject", subject)
	} else {
		s.logger.Warn("NATS unreachable, push notifications wait for the server", "url", s.url, "subject", subject)
	}
	return nil
}

func (s *PushSubscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

// handle runs on the NATS delivery goroutine.
func (s *PushSubscriber) handle(msg *nats.Msg) {
	data := make([]byte, len(msg.Data))
	copy(data, msg.Data)

	s.mu.Lock()
	if len(s.queue) >= s.limit {
		// keep the newest
		s.queue = s.queue[1:]
		s.dropped++
		s.logger.Warn("Push queue full, dropping oldest notification", "dropped_total", s.dropped)
	}
	s.queue = append(s.queue, data)
	s.mu.Unlock()

	if s.onMessage != nil {
		s.onMessage()
	}
}

// Drain returns and clears the buffered payloads. It never blocks on the
// network.
func (s *PushSubscriber) Drain() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.queue
	s.queue = nil
	return out
}

// IsConnected returns true if connected to NATS.
func (s *PushSubscriber) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected && s.conn != nil
}

// Close unsubscribes and closes the connection.
func (s *PushSubscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		_ = s.sub.Unsubscribe()
		s.sub = nil
	}

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}

	s.connected = false
	s.logger.Debug("NATS push subscriber closed")
}

// PushPublisher sends push notifications, standing in for the backend's
// push service in development and from the CLI.
type PushPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewPushPublisher connects a publisher.
func NewPushPublisher(url string, logger *slog.Logger) (*PushPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("lampnode-push-publisher"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, err
	}

	return &PushPublisher{
		conn:   conn,
		logger: logger.With("component", "nats-push-publisher"),
	}, nil
}

// Publish sends a raw notification body to an installation and waits for
// the server to have it.
func (p *PushPublisher) Publish(installationID string, payload []byte) error {
	subject := SubjectPush(installationID)
	if err := p.conn.Publish(subject, payload); err != nil {
		return err
	}
	if err := p.conn.Flush(); err != nil {
		return err
	}

	p.logger.Info("Sent push notification", "subject", subject, "bytes", len(payload))
	return nil
}

// Close closes the publisher connection.
func (p *PushPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// WatchState calls fn for every state announced for installationID, or for
// every installation when installationID is "*". fn runs on the NATS
// delivery goroutine. The returned function unsubscribes and disconnects.
func WatchState(url, installationID string, fn func(StateMessage), logger *slog.Logger) (func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url, nats.Name("lampnode-state-watcher"))
	if err != nil {
		return nil, err
	}

	sub, err := conn.Subscribe(SubjectState(installationID), func(msg *nats.Msg) {
		m, err := UnmarshalState(msg.Data)
		if err != nil {
			logger.Warn("Ignoring malformed state message", "subject", msg.Subject, "error", err)
			return
		}
		fn(m)
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.Flush(); err != nil {
		conn.Close()
		return nil, err
	}

	return func() {
		_ = sub.Unsubscribe()
		conn.Close()
	}, nil
}
