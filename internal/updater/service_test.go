package updater

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/creativeprojects/go-selfupdate"
)

type fakeSource struct {
	release *selfupdate.Release
	found   bool
	err     error
	applied int
}

func (f *fakeSource) DetectLatest(_ context.Context, _ selfupdate.Repository) (*selfupdate.Release, bool, error) {
	return f.release, f.found, f.err
}

func (f *fakeSource) UpdateTo(_ context.Context, _ *selfupdate.Release, _ string) error {
	f.applied++
	return nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(t *testing.T, src releaseSource, restart func()) (*service, string) {
	t.Helper()
	dir := t.TempDir()
	exe := filepath.Join(dir, "lampnode")
	if err := os.WriteFile(exe, []byte("v1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if restart == nil {
		restart = func() {}
	}
	svc, err := newService(Options{
		BackupDir:    filepath.Join(dir, "backup"),
		Restart:      restart,
		RestartDelay: time.Millisecond,
	}, src, exe, newTestLogger())
	if err != nil {
		t.Fatalf("newService() error = %v", err)
	}
	return svc, exe
}

func TestDisabledService(t *testing.T) {
	svc := disabled(newTestLogger(), "read-only filesystem")
	ctx := context.Background()

	if svc.IsEnabled() {
		t.Error("IsEnabled() = true")
	}
	if svc.DisabledReason() != "read-only filesystem" {
		t.Errorf("DisabledReason() = %q", svc.DisabledReason())
	}

	_, err := svc.CheckForUpdate(ctx)
	if CodeOf(err) != CodeDisabled {
		t.Errorf("CheckForUpdate() code = %q, want %q", CodeOf(err), CodeDisabled)
	}
	if CodeOf(svc.ApplyUpdate(ctx)) != CodeDisabled {
		t.Error("ApplyUpdate() not rejected")
	}
	if CodeOf(svc.Rollback(ctx)) != CodeDisabled {
		t.Error("Rollback() not rejected")
	}
	if st := svc.GetStatus(); st.State != StateIdle || st.BackupAvailable {
		t.Errorf("GetStatus() = %+v", st)
	}
}

func TestCheckFailures(t *testing.T) {
	tests := []struct {
		name string
		src  *fakeSource
		want Code
	}{
		{"source error", &fakeSource{err: errors.New("rate limited")}, CodeCheckFailed},
		{"no releases", &fakeSource{}, CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, tt.src, nil)

			_, err := svc.CheckForUpdate(context.Background())
			if CodeOf(err) != tt.want {
				t.Fatalf("CheckForUpdate() error = %v, want code %s", err, tt.want)
			}

			st := svc.GetStatus()
			if st.State != StateError || st.Error == "" || st.LastChecked == nil {
				t.Errorf("GetStatus() = %+v", st)
			}

			// an errored service can check again
			if _, err := svc.CheckForUpdate(context.Background()); CodeOf(err) != tt.want {
				t.Errorf("second CheckForUpdate() error = %v", err)
			}
		})
	}
}

func TestApplyWithoutRelease(t *testing.T) {
	src := &fakeSource{}
	svc, _ := newTestService(t, src, nil)

	err := svc.ApplyUpdate(context.Background())
	if CodeOf(err) != CodeNotFound {
		t.Fatalf("ApplyUpdate() error = %v, want code %s", err, CodeNotFound)
	}
	if src.applied != 0 {
		t.Errorf("UpdateTo called %d times", src.applied)
	}
}

func TestRollbackWithoutBackup(t *testing.T) {
	svc, _ := newTestService(t, &fakeSource{}, nil)
	if err := svc.Rollback(context.Background()); CodeOf(err) != CodeNoBackup {
		t.Errorf("Rollback() error = %v, want code %s", err, CodeNoBackup)
	}
}

func TestRollbackRestoresBackup(t *testing.T) {
	restarted := make(chan struct{}, 1)
	svc, exe := newTestService(t, &fakeSource{}, func() { restarted <- struct{}{} })

	if err := svc.backups.save(exe, "1.0.0"); err != nil {
		t.Fatalf("save() error = %v", err)
	}
	if err := os.WriteFile(exe, []byte("v2"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := svc.Rollback(context.Background()); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	data, err := os.ReadFile(exe)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v1" {
		t.Errorf("binary = %q after rollback, want v1", data)
	}

	st := svc.GetStatus()
	if st.State != StateRolledBack || !st.BackupAvailable || st.BackupVersion != "1.0.0" {
		t.Errorf("GetStatus() = %+v", st)
	}

	select {
	case <-restarted:
	case <-time.After(time.Second):
		t.Fatal("restart not triggered")
	}
}

func TestBackupSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "lampnode")
	if err := os.WriteFile(exe, []byte("bin"), 0o755); err != nil {
		t.Fatal(err)
	}

	first, err := openBackupStore(filepath.Join(dir, "backup"), newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := first.save(exe, "0.3.1"); err != nil {
		t.Fatal(err)
	}

	second, err := openBackupStore(filepath.Join(dir, "backup"), newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := second.version(); !ok || v != "0.3.1" {
		t.Errorf("version() = %q, %v", v, ok)
	}

	if err := os.Remove(filepath.Join(dir, "backup", backupBinary)); err != nil {
		t.Fatal(err)
	}
	third, err := openBackupStore(filepath.Join(dir, "backup"), newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := third.version(); ok {
		t.Error("metadata without binary was accepted")
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), fail(CodeNoUpdate, "nothing", nil))
	if CodeOf(wrapped) != CodeNoUpdate {
		t.Errorf("CodeOf(wrapped) = %q", CodeOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("CodeOf(plain) not empty")
	}
}
