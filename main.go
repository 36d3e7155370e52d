package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/lampnode/cmd"
	"github.com/smazurov/lampnode/internal/config"
	"github.com/smazurov/lampnode/internal/logging"
	"github.com/spf13/cobra"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"/etc/lampnode/config.toml"`

	// Server settings
	Port         string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	AuthUsername string `help:"Basic auth username, empty disables auth" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Backend settings
	BackendURL           string `help:"Backend base URL" default:"https://api.parse.com" toml:"backend.url" env:"BACKEND_URL"`
	BackendApplicationID string `help:"Backend application id" toml:"backend.application_id" env:"BACKEND_APPLICATION_ID"`
	BackendClientKey     string `help:"Backend client key" toml:"backend.client_key" env:"BACKEND_CLIENT_KEY"`
	BackendSessionToken  string `help:"Session token of the owning user" toml:"backend.session_token" env:"BACKEND_SESSION_TOKEN"`
	BackendTimeoutMs     int    `help:"Backend request timeout in milliseconds" default:"10000" toml:"backend.timeout_ms" env:"BACKEND_TIMEOUT_MS"`

	// Device settings
	DeviceInstallationID string `help:"Local installation identifier" toml:"device.installation_id" env:"DEVICE_INSTALLATION_ID"`
	DeviceName           string `help:"Device name written to the installation record" default:"lampnode" toml:"device.name" env:"DEVICE_NAME"`
	DeviceSubtype        string `help:"Device subtype written to the installation record" default:"fluffy" toml:"device.subtype" env:"DEVICE_SUBTYPE"`
	DeviceModelName      string `help:"Model appName to link the installation to" default:"fbdr000001c" toml:"device.model_name" env:"DEVICE_MODEL_NAME"`

	// Hardware settings
	GpioChip            string `help:"GPIO chip for the button and GPIO LED" default:"gpiochip0" toml:"gpio.chip" env:"GPIO_CHIP"`
	GpioButtonLine      int    `help:"Button input line offset, -1 disables the button" default:"-1" toml:"gpio.button_line" env:"GPIO_BUTTON_LINE"`
	GpioButtonPullup    bool   `help:"Enable the internal pull-up on the button line" default:"false" toml:"gpio.button_pullup" env:"GPIO_BUTTON_PULLUP"`
	GpioButtonActiveLow bool   `help:"Button pulls the line low when pressed" default:"false" toml:"gpio.button_active_low" env:"GPIO_BUTTON_ACTIVE_LOW"`
	GpioDebounceMs      int    `help:"Button debounce window in milliseconds" default:"30" toml:"gpio.debounce_ms" env:"GPIO_DEBOUNCE_MS"`
	LedDriver           string `help:"Indicator driver (auto, gpio, sysfs, noop)" default:"auto" toml:"led.driver" env:"LED_DRIVER"`
	LedLine             int    `help:"GPIO LED output line offset" default:"-1" toml:"led.line" env:"LED_LINE"`
	LedSysfsName        string `help:"sysfs LED name, empty detects the board LED" toml:"led.sysfs_name" env:"LED_SYSFS_NAME"`
	LedActiveLow        bool   `help:"GPIO LED is lit when the line is low" default:"false" toml:"led.active_low" env:"LED_ACTIVE_LOW"`

	// Timing settings
	BlinkIntervalMs    int `help:"Blink half-period in milliseconds" default:"500" toml:"blink.interval_ms" env:"BLINK_INTERVAL_MS"`
	LoopPollIntervalMs int `help:"Control loop idle poll interval in milliseconds" default:"100" toml:"loop.poll_interval_ms" env:"LOOP_POLL_INTERVAL_MS"`

	// Push transport settings
	NatsEnabled  bool   `help:"Receive push notifications over NATS" default:"true" toml:"nats.enabled" env:"NATS_ENABLED"`
	NatsURL      string `help:"NATS server URL" default:"nats://127.0.0.1:4222" toml:"nats.url" env:"NATS_URL"`
	NatsEmbedded bool   `help:"Run an embedded NATS server" default:"false" toml:"nats.embedded" env:"NATS_EMBEDDED"`
	NatsPort     int    `help:"Embedded NATS server port" default:"4222" toml:"nats.port" env:"NATS_PORT"`

	// Systemd settings
	SystemdService   string `help:"Unit name exposed by the service API" default:"lampnode.service" toml:"systemd.service" env:"SYSTEMD_SERVICE"`
	SystemdControl   bool   `help:"Expose unit status and restart over the API" default:"false" toml:"systemd.control" env:"SYSTEMD_CONTROL"`
	SystemdSystemBus bool   `help:"Use the system D-Bus instead of the user bus" default:"true" toml:"systemd.system_bus" env:"SYSTEMD_SYSTEM_BUS"`

	// Self-update settings
	UpdateEnabled    bool   `help:"Expose GitHub self-update over the API" default:"false" toml:"update.enabled" env:"UPDATE_ENABLED"`
	UpdateRepository string `help:"GitHub repository releases are read from" default:"smazurov/lampnode" toml:"update.repository" env:"UPDATE_REPOSITORY"`
	UpdatePrerelease bool   `help:"Consider prereleases" default:"false" toml:"update.prerelease" env:"UPDATE_PRERELEASE"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingController string `help:"Control loop logging level" default:"info" toml:"logging.controller" env:"LOGGING_CONTROLLER"`
	LoggingBackend    string `help:"Backend client logging level" default:"info" toml:"logging.backend" env:"LOGGING_BACKEND"`
	LoggingPush       string `help:"Push logging level" default:"info" toml:"logging.push" env:"LOGGING_PUSH"`
	LoggingNats       string `help:"NATS logging level" default:"info" toml:"logging.nats" env:"LOGGING_NATS"`
	LoggingHardware   string `help:"Button and LED logging level" default:"info" toml:"logging.hardware" env:"LOGGING_HARDWARE"`
	LoggingAPI        string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingUpdater    string `help:"Self-update logging level" default:"info" toml:"logging.updater" env:"LOGGING_UPDATER"`
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"controller": o.LoggingController,
			"backend":    o.LoggingBackend,
			"push":       o.LoggingPush,
			"nats":       o.LoggingNats,
			"hardware":   o.LoggingHardware,
			"api":        o.LoggingAPI,
			"http":       o.LoggingAPI,
			"updater":    o.LoggingUpdater,
		},
	}
}

func main() {
	var root *cobra.Command

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, root); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan struct{})

		hooks.OnStart(func() {
			defer close(stopped)

			d, err := newDaemon(opts)
			if err != nil {
				logger.Error("Failed to start lampnode", "error", err)
				os.Exit(1)
			}
			d.run(ctx)
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			cancel()
			select {
			case <-stopped:
			case <-time.After(5 * time.Second):
				logger.Warn("Shutdown timed out")
			}
		})
	})

	root = cli.Root()
	root.Use = "lampnode"
	root.Short = "Three-state lamp controller"
	root.AddCommand(cmd.CreatePushCmd())
	root.AddCommand(cmd.CreateWatchCmd())
	root.AddCommand(cmd.CreateVersionCmd())

	cli.Run()
}
