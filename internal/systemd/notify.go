package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Ready tells systemd that startup finished. It is a no-op outside a
// Type=notify unit.
func Ready(logger *slog.Logger) {
	notify(logger, daemon.SdNotifyReady)
}

// Stopping tells systemd that shutdown has begun.
func Stopping(logger *slog.Logger) {
	notify(logger, daemon.SdNotifyStopping)
}

// Status publishes a one-line status shown by systemctl status.
func Status(logger *slog.Logger, status string) {
	notify(logger, "STATUS="+status)
}

func notify(logger *slog.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn("sd_notify failed", "state", state, "error", err)
		return
	}
	if sent {
		logger.Debug("sd_notify sent", "state", state)
	}
}

// RunWatchdog pings the systemd watchdog at half the configured interval
// until ctx is done. It returns immediately when the watchdog is disabled.
// alive is consulted before each ping; a false result skips that ping so a
// wedged control loop lets systemd restart the unit.
func RunWatchdog(ctx context.Context, alive func() bool, logger *slog.Logger) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("Failed to read watchdog settings", "error", err)
		return
	}
	if interval == 0 {
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	logger.Info("Systemd watchdog enabled", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if alive != nil && !alive() {
				logger.Warn("Control loop not progressing, skipping watchdog ping")
				continue
			}
			notify(logger, daemon.SdNotifyWatchdog)
		}
	}
}
