package led

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs implements Indicator using the Linux sysfs LED interface
type sysfs struct {
	name  string
	path  string
	level atomic.Bool
}

// newSysfs opens the LED under root (normally /sys/class/leds) and takes it
// over from any kernel trigger.
func newSysfs(root, name string) (*sysfs, error) {
	ledPath := filepath.Join(root, name)

	if _, err := os.Stat(ledPath); err != nil {
		return nil, fmt.Errorf("LED %q not found at %s: %w", name, ledPath, err)
	}

	// Manual brightness control only works with the trigger disabled
	triggerPath := filepath.Join(ledPath, "trigger")
	if err := os.WriteFile(triggerPath, []byte("none"), 0644); err != nil {
		return nil, fmt.Errorf("failed to set LED trigger to none: %w", err)
	}

	return &sysfs{name: name, path: ledPath}, nil
}

func (s *sysfs) Set(on bool) error {
	value := "0"
	if on {
		value = "1"
	}

	if err := os.WriteFile(filepath.Join(s.path, "brightness"), []byte(value), 0644); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}
	s.level.Store(on)
	return nil
}

func (s *sysfs) Level() bool { return s.level.Load() }

func (s *sysfs) Name() string { return "sysfs:" + s.name }

func (s *sysfs) Close() error { return nil }
