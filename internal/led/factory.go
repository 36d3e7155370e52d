package led

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// Driver names accepted by New.
const (
	DriverAuto  = "auto"
	DriverGPIO  = "gpio"
	DriverSysfs = "sysfs"
	DriverNoop  = "noop"
)

// Config selects and configures the indicator driver.
type Config struct {
	Driver    string
	Chip      string
	Line      int
	ActiveLow bool
	SysfsName string
	// SysfsRoot overrides /sys/class/leds.
	SysfsRoot string
}

// New creates the configured indicator. Hardware that cannot be opened
// degrades to a no-op indicator; only an unknown driver name is an error.
func New(cfg Config, logger *slog.Logger) (Indicator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	root := cfg.SysfsRoot
	if root == "" {
		root = sysfsLEDPath
	}

	switch cfg.Driver {
	case DriverGPIO:
		ind, err := newGPIO(cfg.Chip, cfg.Line, cfg.ActiveLow)
		if err != nil {
			logger.Warn("GPIO indicator unavailable, using no-op", "error", err)
			return newNoop(logger), nil
		}
		logger.Info("Using GPIO indicator", "chip", cfg.Chip, "line", cfg.Line)
		return ind, nil

	case DriverSysfs:
		return openSysfs(root, cfg.SysfsName, logger), nil

	case DriverNoop:
		return newNoop(logger), nil

	case DriverAuto, "":
		name := cfg.SysfsName
		if name == "" {
			boardModel := detectBoard()
			logger.Info("Detecting board for LED control", "board_model", boardModel)
			name = boardLED(boardModel)
		}
		if name == "" {
			logger.Info("No LED support detected, using no-op indicator")
			return newNoop(logger), nil
		}
		return openSysfs(root, name, logger), nil

	default:
		return nil, fmt.Errorf("unknown LED driver %q", cfg.Driver)
	}
}

func openSysfs(root, name string, logger *slog.Logger) Indicator {
	ind, err := newSysfs(root, name)
	if err != nil {
		logger.Warn("Sysfs indicator unavailable, using no-op", "error", err)
		return newNoop(logger)
	}
	logger.Info("Using sysfs indicator", "led", name)
	return ind
}

// boardLED maps a device tree model to the user LED the lamp drives.
func boardLED(boardModel string) string {
	switch {
	case strings.Contains(boardModel, "NanoPC-T6"):
		return "usr_led"
	case strings.Contains(boardModel, "Orange Pi"):
		return "green_led"
	case strings.Contains(boardModel, "Raspberry Pi"):
		return "ACT"
	default:
		return ""
	}
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}

	// Device tree model contains null bytes, trim them
	return strings.TrimRight(string(data), "\x00")
}
