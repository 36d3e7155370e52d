package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string

	BackendURL   string   `toml:"backend.url" env:"BACKEND_URL"`
	NatsEmbedded bool     `toml:"nats.embedded" env:"NATS_EMBEDDED"`
	GpioLine     int      `toml:"gpio.button_line" env:"GPIO_BUTTON_LINE"`
	BlinkRatio   float64  `toml:"blink.ratio" env:"BLINK_RATIO"`
	Tags         []string `toml:"device.tags" env:"DEVICE_TAGS"`
	Untagged     string
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lampnode.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleTOML = `
[backend]
url = "https://parse.example.com"

[nats]
embedded = true

[gpio]
button_line = 17

[blink]
ratio = 2

[device]
tags = ["kitchen", "lamp"]
`

func TestLoadConfigFromTOML(t *testing.T) {
	opts := &testOptions{Config: writeFile(t, sampleTOML), Untagged: "keep"}

	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	want := testOptions{
		Config:       opts.Config,
		BackendURL:   "https://parse.example.com",
		NatsEmbedded: true,
		GpioLine:     17,
		BlinkRatio:   2,
		Tags:         []string{"kitchen", "lamp"},
		Untagged:     "keep",
	}
	if !reflect.DeepEqual(*opts, want) {
		t.Errorf("got %+v\nwant %+v", *opts, want)
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	t.Setenv("LAMPNODE_BACKEND_URL", "http://localhost:1337/parse")
	t.Setenv("LAMPNODE_GPIO_BUTTON_LINE", "23")
	t.Setenv("LAMPNODE_DEVICE_TAGS", "a, b ,c")
	t.Setenv("LAMPNODE_NATS_EMBEDDED", "not-a-bool")

	opts := &testOptions{Config: writeFile(t, sampleTOML)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if opts.BackendURL != "http://localhost:1337/parse" {
		t.Errorf("BackendURL = %q", opts.BackendURL)
	}
	if opts.GpioLine != 23 {
		t.Errorf("GpioLine = %d, want 23", opts.GpioLine)
	}
	if !reflect.DeepEqual(opts.Tags, []string{"a", "b", "c"}) {
		t.Errorf("Tags = %v", opts.Tags)
	}
	// an unparsable env value leaves the file value
	if !opts.NatsEmbedded {
		t.Error("NatsEmbedded = false, want true from file")
	}
}

func TestLoadConfigExplicitFlagWins(t *testing.T) {
	t.Setenv("LAMPNODE_BACKEND_URL", "http://from-env")

	opts := &testOptions{Config: writeFile(t, sampleTOML)}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&opts.BackendURL, "backend-url", "", "")
	cmd.Flags().IntVar(&opts.GpioLine, "gpio-line", 0, "")
	if err := cmd.Flags().Parse([]string{"--backend-url", "http://from-flag"}); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if opts.BackendURL != "http://from-flag" {
		t.Errorf("BackendURL = %q, want flag value", opts.BackendURL)
	}
	if opts.GpioLine != 17 {
		t.Errorf("GpioLine = %d, want file value for unset flag", opts.GpioLine)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "absent.toml"), BackendURL: "default"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if opts.BackendURL != "default" {
		t.Errorf("BackendURL = %q, want default kept", opts.BackendURL)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	opts := &testOptions{Config: writeFile(t, "[backend\nurl = ")}
	if err := LoadConfig(opts, nil); err == nil {
		t.Fatal("LoadConfig() succeeded on invalid TOML")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":           "port",
		"BackendURL":     "backend-url",
		"URLPath":        "url-path",
		"LedActiveLow":   "led-active-low",
		"NatsEmbedded":   "nats-embedded",
		"GpioButtonLine": "gpio-button-line",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"backend": map[string]any{"url": "x", "timeout": int64(5)},
		"flat":    "y",
	}
	tests := []struct {
		path string
		want any
	}{
		{"backend.url", "x"},
		{"backend.timeout", int64(5)},
		{"flat", "y"},
		{"flat.deeper", nil},
		{"missing.key", nil},
	}
	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.want {
			t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeFile(t, `
[logging]
level = "warn"
format = "json"
backend = "debug"
api = "error"
`)

	cfg, err := LoadLoggingConfig(path)
	if err != nil {
		t.Fatalf("LoadLoggingConfig() error = %v", err)
	}
	if cfg.Level != "warn" || cfg.Format != "json" {
		t.Errorf("global = %q/%q", cfg.Level, cfg.Format)
	}
	want := map[string]string{"backend": "debug", "api": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}
}

func TestLoadLoggingConfigDefaults(t *testing.T) {
	for name, path := range map[string]string{
		"empty path":   "",
		"missing file": filepath.Join(t.TempDir(), "absent.toml"),
		"no table":     writeFile(t, "[backend]\nurl = \"x\"\n"),
	} {
		t.Run(name, func(t *testing.T) {
			cfg, err := LoadLoggingConfig(path)
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if cfg.Level != "info" || cfg.Format != "text" || len(cfg.Modules) != 0 {
				t.Errorf("got %+v, want defaults", cfg)
			}
		})
	}

	if _, err := LoadLoggingConfig(writeFile(t, "[logging\n")); err == nil {
		t.Error("invalid TOML returned no error")
	}
}
