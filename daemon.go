package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/smazurov/lampnode/internal/api"
	"github.com/smazurov/lampnode/internal/backend"
	"github.com/smazurov/lampnode/internal/button"
	"github.com/smazurov/lampnode/internal/config"
	"github.com/smazurov/lampnode/internal/controller"
	"github.com/smazurov/lampnode/internal/device"
	"github.com/smazurov/lampnode/internal/events"
	"github.com/smazurov/lampnode/internal/identity"
	"github.com/smazurov/lampnode/internal/led"
	"github.com/smazurov/lampnode/internal/logging"
	"github.com/smazurov/lampnode/internal/metrics"
	"github.com/smazurov/lampnode/internal/nats"
	"github.com/smazurov/lampnode/internal/push"
	"github.com/smazurov/lampnode/internal/signal"
	"github.com/smazurov/lampnode/internal/systemd"
	"github.com/smazurov/lampnode/internal/updater"
)

// daemon owns every long-lived component of a running lamp.
type daemon struct {
	opts   *Options
	logger *slog.Logger

	bus        *events.Bus
	signals    *signal.Signals
	transport  *backend.HTTPTransport
	machine    *device.Machine
	loop       *controller.Loop
	indicator  led.Indicator
	button     *button.Button
	natsServer *nats.Server
	subscriber *nats.PushSubscriber
	bridge     *nats.Bridge
	recorder   *metrics.Recorder
	service    *systemd.Manager
	server     *api.Server
	watcher    *config.Watcher[logging.Config]
}

// newDaemon builds the component graph. Only an invalid configuration is
// fatal; missing hardware or brokers degrade.
func newDaemon(opts *Options) (*daemon, error) {
	if opts.DeviceInstallationID == "" {
		return nil, errors.New("device.installation_id is required")
	}

	d := &daemon{
		opts:    opts,
		logger:  logging.GetLogger("main"),
		bus:     events.New(),
		signals: signal.New(),
	}

	d.transport = backend.NewHTTPTransport(backend.HTTPConfig{
		BaseURL:        opts.BackendURL,
		ApplicationID:  opts.BackendApplicationID,
		ClientKey:      opts.BackendClientKey,
		SessionToken:   opts.BackendSessionToken,
		InstallationID: opts.DeviceInstallationID,
		Timeout:        time.Duration(opts.BackendTimeoutMs) * time.Millisecond,
	}, d.bus, logging.GetLogger("backend"))
	d.transport.OnComplete(d.signals.Wake)

	cache := identity.NewCache()
	client := backend.NewClient(d.transport, cache, backend.Config{
		InstallationID: opts.DeviceInstallationID,
		DeviceName:     opts.DeviceName,
		DeviceSubtype:  opts.DeviceSubtype,
		ModelName:      opts.DeviceModelName,
	}, d.bus, logging.GetLogger("backend"))

	d.machine = device.NewMachine(client, d.bus, logging.GetLogger("controller"))

	var source push.Source
	if opts.NatsEnabled {
		if err := d.startNATS(); err != nil {
			return nil, err
		}
		source = d.subscriber
	}
	poller := push.NewPoller(source, d.machine, d.bus, logging.GetLogger("push"))

	hwLogger := logging.GetLogger("hardware")
	indicator, err := led.New(led.Config{
		Driver:    opts.LedDriver,
		Chip:      opts.GpioChip,
		Line:      opts.LedLine,
		ActiveLow: opts.LedActiveLow,
		SysfsName: opts.LedSysfsName,
	}, hwLogger)
	if err != nil {
		return nil, fmt.Errorf("indicator: %w", err)
	}
	d.indicator = indicator

	if opts.GpioButtonLine >= 0 {
		btn, err := button.Open(button.Config{
			Chip:      opts.GpioChip,
			Line:      opts.GpioButtonLine,
			PullUp:    opts.GpioButtonPullup,
			ActiveLow: opts.GpioButtonActiveLow,
			Debounce:  time.Duration(opts.GpioDebounceMs) * time.Millisecond,
		}, d.signals.Press, hwLogger)
		if err != nil {
			hwLogger.Warn("Button unavailable, continuing without it", "error", err)
		} else {
			d.button = btn
		}
	}

	d.loop = controller.New(controller.Options{
		Machine:      d.machine,
		Cache:        cache,
		Dispatcher:   d.transport,
		Syncer:       client,
		Poller:       poller,
		Signals:      d.signals,
		Indicator:    d.indicator,
		Bus:          d.bus,
		Logger:       logging.GetLogger("controller"),
		PollInterval: time.Duration(opts.LoopPollIntervalMs) * time.Millisecond,
	})

	d.recorder = metrics.NewRecorder(d.bus, d.machine.State().String())

	apiOpts := &api.Options{
		AuthUsername:      opts.AuthUsername,
		AuthPassword:      opts.AuthPassword,
		State:             d.machine,
		Cache:             cache,
		Indicator:         d.indicator,
		Press:             d.signals.Press,
		EventBus:          d.bus,
		PrometheusHandler: metrics.Handler(),
	}
	if d.subscriber != nil {
		apiOpts.Push = d.subscriber
	}
	if opts.SystemdControl {
		mgr, err := systemd.NewManager(context.Background(), opts.SystemdSystemBus)
		if err != nil {
			d.logger.Warn("Systemd control unavailable", "error", err)
		} else {
			d.service = mgr
			apiOpts.SystemdManager = mgr
			apiOpts.ServiceName = opts.SystemdService
		}
	}
	if opts.UpdateEnabled {
		up, err := updater.NewService(updater.Options{
			Repository: opts.UpdateRepository,
			Prerelease: opts.UpdatePrerelease,
			Restart:    d.restartAfterUpdate,
		})
		if err != nil {
			d.logger.Warn("Self-update unavailable", "error", err)
		} else {
			apiOpts.Updater = up
		}
	}
	d.server = api.NewServer(apiOpts)

	return d, nil
}

// startNATS starts the optional embedded server, the push subscriber and
// the state bridge. Connection failures are logged and tolerated.
func (d *daemon) startNATS() error {
	logger := logging.GetLogger("nats")
	url := d.opts.NatsURL

	if d.opts.NatsEmbedded {
		d.natsServer = nats.NewServer(nats.ServerOptions{Port: d.opts.NatsPort, Logger: logger})
		if err := d.natsServer.Start(); err != nil {
			return fmt.Errorf("embedded NATS server: %w", err)
		}
		url = d.natsServer.ClientURL()
	}

	d.subscriber = nats.NewPushSubscriber(url, d.opts.DeviceInstallationID, d.signals.Wake, logger)
	if err := d.subscriber.Connect(); err != nil {
		logger.Warn("Push notifications disabled", "url", url, "error", err)
	}

	d.bridge = nats.NewBridge(url, d.opts.DeviceInstallationID, d.bus, logger)
	if err := d.bridge.Start(); err != nil {
		logger.Warn("State bridge disabled", "error", err)
	}
	return nil
}

// restartAfterUpdate asks systemd for a restart when unit control is on and
// otherwise signals this process, relying on Restart= in the unit.
func (d *daemon) restartAfterUpdate() {
	if d.service != nil {
		err := d.service.RestartService(context.Background(), d.opts.SystemdService)
		if err == nil {
			return
		}
		d.logger.Warn("Systemd restart failed, signalling self", "error", err)
	}
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		d.logger.Error("Failed to send SIGTERM", "error", err)
	}
}

// run blocks until ctx is cancelled, then tears everything down.
func (d *daemon) run(ctx context.Context) {
	defer d.close()

	go func() {
		d.logger.Info("Starting HTTP server", "port", d.opts.Port)
		if err := d.server.Start(d.opts.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("HTTP server failed", "error", err)
		}
	}()

	go d.signals.RunTicker(ctx, time.Duration(d.opts.BlinkIntervalMs)*time.Millisecond)
	d.watchConfig()

	loopDone := make(chan error, 1)
	go func() { loopDone <- d.loop.Run(ctx) }()

	systemd.Ready(d.logger)
	systemd.Status(d.logger, "lamp "+d.machine.State().String())
	go systemd.RunWatchdog(ctx, func() bool {
		return d.loop.Alive(10 * d.loop.PollInterval())
	}, d.logger)

	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Error("Control loop exited", "error", err)
	}
	systemd.Stopping(d.logger)
}

// watchConfig applies [logging] changes from the config file at runtime.
func (d *daemon) watchConfig() {
	if d.opts.Config == "" {
		return
	}
	d.watcher = config.NewConfigWatcher(d.opts.Config, config.LoadLoggingConfig, logging.GetLogger("config"))
	d.watcher.OnReload(func(cfg logging.Config) {
		logging.SetLevels(cfg)
		d.logger.Info("Logging levels reloaded", "level", cfg.Level)
	})
	if err := d.watcher.Start(); err != nil {
		d.logger.Warn("Config hot reload disabled", "path", d.opts.Config, "error", err)
		d.watcher = nil
	}
}

func (d *daemon) close() {
	if d.watcher != nil {
		_ = d.watcher.Stop()
	}
	if err := d.server.Stop(); err != nil {
		d.logger.Warn("Error stopping HTTP server", "error", err)
	}
	if d.service != nil {
		d.service.Close()
	}
	d.recorder.Stop()
	if d.button != nil {
		if err := d.button.Close(); err != nil {
			d.logger.Warn("Error closing button", "error", err)
		}
	}
	if err := d.indicator.Close(); err != nil {
		d.logger.Warn("Error closing indicator", "error", err)
	}
	if d.bridge != nil {
		d.bridge.Stop()
	}
	if d.subscriber != nil {
		d.subscriber.Close()
	}
	if d.natsServer != nil {
		d.natsServer.Stop()
	}
	d.transport.Stop()
	d.logger.Info("lampnode stopped")
}
