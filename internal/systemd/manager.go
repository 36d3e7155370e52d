// Package systemd integrates lampnode with its service manager: readiness
// and watchdog notifications over the notify socket, and unit control over
// D-Bus for the status API.
package systemd

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
)

// Manager queries and controls systemd units over D-Bus.
type Manager struct {
	conn *dbus.Conn
}

// NewManager connects to the user bus, or to the system bus when system is
// true (lampnode normally runs as a system service).
func NewManager(ctx context.Context, system bool) (*Manager, error) {
	connect := dbus.NewUserConnectionContext
	if system {
		connect = dbus.NewSystemConnectionContext
	}
	conn, err := connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to systemd: %w", err)
	}
	return &Manager{conn: conn}, nil
}

// GetServiceStatus returns the unit's ActiveState, e.g. "active".
func (m *Manager) GetServiceStatus(ctx context.Context, serviceName string) (string, error) {
	prop, err := m.conn.GetUnitPropertyContext(ctx, serviceName, "ActiveState")
	if err != nil {
		return "", err
	}
	if state, ok := prop.Value.Value().(string); ok {
		return state, nil
	}
	return prop.Value.String(), nil
}

// RestartService queues a restart job and returns without waiting for it.
func (m *Manager) RestartService(ctx context.Context, serviceName string) error {
	_, err := m.conn.RestartUnitContext(ctx, serviceName, "replace", nil)
	return err
}

func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}
