package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type testConfig struct {
	Name  string `toml:"name"`
	Value int    `toml:"value"`
}

func loadTestConfig(path string) (testConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return testConfig{}, err
	}
	var cfg testConfig
	err = toml.Unmarshal(data, &cfg)
	return cfg, err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatcher(t *testing.T, loader func(string) (testConfig, error), opts ...WatcherOption[testConfig]) (*Watcher[testConfig], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("name = \"initial\"\nvalue = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	opts = append([]WatcherOption[testConfig]{WithDebounce[testConfig](50 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, loader, newTestLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	})
	return w, path
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherReload(t *testing.T) {
	w, path := startWatcher(t, loadTestConfig)

	received := make(chan testConfig, 1)
	w.OnReload(func(cfg testConfig) { received <- cfg })

	write(t, path, "name = \"updated\"\nvalue = 42\n")

	select {
	case cfg := <-received:
		if cfg.Name != "updated" || cfg.Value != 42 {
			t.Errorf("got %+v, want updated/42", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherAtomicRename(t *testing.T) {
	w, path := startWatcher(t, loadTestConfig)

	received := make(chan testConfig, 1)
	w.OnReload(func(cfg testConfig) { received <- cfg })

	tmp := path + ".tmp"
	write(t, tmp, "name = \"renamed\"\nvalue = 7\n")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.Name != "renamed" {
			t.Errorf("got %+v, want renamed", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload after rename")
	}
}

func TestWatcherDebounce(t *testing.T) {
	var loads atomic.Int32
	loader := func(path string) (testConfig, error) {
		loads.Add(1)
		return loadTestConfig(path)
	}
	w, path := startWatcher(t, loader, WithDebounce[testConfig](200*time.Millisecond))

	received := make(chan testConfig, 10)
	w.OnReload(func(cfg testConfig) { received <- cfg })

	for i := 0; i < 5; i++ {
		write(t, path, "value = "+string(rune('1'+i))+"\n")
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case cfg := <-received:
		if cfg.Value != 5 {
			t.Errorf("Value = %d, want last write 5", cfg.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	time.Sleep(300 * time.Millisecond)
	if n := loads.Load(); n != 1 {
		t.Errorf("loader ran %d times, want 1", n)
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	w, path := startWatcher(t, loadTestConfig)

	var removed atomic.Int32
	kept := make(chan struct{}, 1)
	unsubscribe := w.OnReload(func(testConfig) { removed.Add(1) })
	w.OnReload(func(testConfig) { kept <- struct{}{} })
	unsubscribe()

	write(t, path, "value = 2\n")

	select {
	case <-kept:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	if removed.Load() != 0 {
		t.Error("unsubscribed handler was called")
	}
}

func TestWatcherLoaderError(t *testing.T) {
	errs := make(chan error, 1)
	loader := func(string) (testConfig, error) {
		return testConfig{}, errors.New("broken")
	}
	w, path := startWatcher(t, loader, WithErrorHandler[testConfig](func(err error) { errs <- err }))

	var called atomic.Bool
	w.OnReload(func(testConfig) { called.Store(true) })

	write(t, path, "value = 3\n")

	select {
	case err := <-errs:
		if err.Error() != "broken" {
			t.Errorf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error")
	}
	if called.Load() {
		t.Error("handler called after loader failure")
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	w, path := startWatcher(t, loadTestConfig)

	received := make(chan testConfig, 1)
	w.OnReload(func(cfg testConfig) { received <- cfg })

	write(t, filepath.Join(filepath.Dir(path), "other.toml"), "value = 9\n")

	select {
	case cfg := <-received:
		t.Errorf("unexpected reload %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherStopTwice(t *testing.T) {
	w := NewConfigWatcher(filepath.Join(t.TempDir(), "x.toml"), loadTestConfig, newTestLogger())
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("first Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
