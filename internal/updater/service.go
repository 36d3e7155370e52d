package updater

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/smazurov/lampnode/internal/logging"
	"github.com/smazurov/lampnode/internal/version"
)

// DefaultRepository is where lampnode releases are published.
const DefaultRepository = "smazurov/lampnode"

const defaultRestartDelay = 500 * time.Millisecond

// releaseSource is the part of *selfupdate.Updater the service drives.
type releaseSource interface {
	DetectLatest(ctx context.Context, repository selfupdate.Repository) (*selfupdate.Release, bool, error)
	UpdateTo(ctx context.Context, rel *selfupdate.Release, cmdPath string) error
}

type service struct {
	source     releaseSource
	repository selfupdate.Repository
	slug       string
	execPath   string
	backups    *backupStore
	restart    func()
	delay      time.Duration
	logger     *slog.Logger

	enabled        bool
	disabledReason string

	mu          sync.RWMutex
	state       State
	latest      *selfupdate.Release
	lastChecked *time.Time
	lastError   error
}

// NewService returns an updater for the running binary. When the binary's
// directory is not writable the service is returned disabled rather than
// failing, so the API can report why.
func NewService(opts Options) (Service, error) {
	logger := logging.GetLogger("updater")

	execPath, err := selfupdate.ExecutablePath()
	if err != nil {
		return disabled(logger, fmt.Sprintf("failed to locate executable: %v", err)), nil
	}
	if reason := checkWritable(filepath.Dir(execPath)); reason != "" {
		logger.Warn("Self-update disabled", "reason", reason)
		return disabled(logger, reason), nil
	}

	gh, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub source: %w", err)
	}
	up, err := selfupdate.NewUpdater(selfupdate.Config{Source: gh, Prerelease: opts.Prerelease})
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}

	svc, err := newService(opts, up, execPath, logger)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func newService(opts Options, source releaseSource, execPath string, logger *slog.Logger) (*service, error) {
	if opts.Repository == "" {
		opts.Repository = DefaultRepository
	}
	if opts.BackupDir == "" {
		dir, err := defaultBackupDir()
		if err != nil {
			return nil, err
		}
		opts.BackupDir = dir
	}
	if opts.Restart == nil {
		opts.Restart = func() { signalSelf(logger) }
	}
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = defaultRestartDelay
	}

	backups, err := openBackupStore(opts.BackupDir, logger)
	if err != nil {
		return nil, err
	}

	return &service{
		source:     source,
		repository: selfupdate.ParseSlug(opts.Repository),
		slug:       opts.Repository,
		execPath:   execPath,
		backups:    backups,
		restart:    opts.Restart,
		delay:      opts.RestartDelay,
		logger:     logger,
		enabled:    true,
		state:      StateIdle,
	}, nil
}

func disabled(logger *slog.Logger, reason string) *service {
	return &service{logger: logger, state: StateIdle, disabledReason: reason}
}

func checkWritable(dir string) string {
	f, err := os.CreateTemp(dir, ".lampnode.update.*")
	if err != nil {
		return fmt.Sprintf("no write permission to %s: %v", dir, err)
	}
	f.Close()
	os.Remove(f.Name())
	return ""
}

func (s *service) IsEnabled() bool {
	return s.enabled
}

func (s *service) DisabledReason() string {
	return s.disabledReason
}

// CheckForUpdate asks GitHub for the latest release. A "dev" build is always
// considered outdated.
func (s *service) CheckForUpdate(ctx context.Context) (*UpdateInfo, error) {
	if !s.enabled {
		return nil, fail(CodeDisabled, s.disabledReason, nil)
	}
	if !s.transition(StateChecking, StateIdle, StateAvailable, StateError, StateRolledBack) {
		return nil, fail(CodeInvalidState, fmt.Sprintf("cannot check for updates while %s", s.current()), nil)
	}

	release, found, err := s.source.DetectLatest(ctx, s.repository)
	now := time.Now()
	s.mu.Lock()
	s.lastChecked = &now
	s.mu.Unlock()

	if err != nil {
		s.setError(err)
		return nil, fail(CodeCheckFailed, "failed to check for updates", err)
	}
	if !found {
		err := fmt.Errorf("no releases in %s", s.slug)
		s.setError(err)
		return nil, fail(CodeNotFound, err.Error(), nil)
	}

	info := &UpdateInfo{
		CurrentVersion: version.Version,
		LatestVersion:  release.Version(),
	}
	if version.Version != "dev" && !release.GreaterThan(version.Version) {
		s.transition(StateIdle)
		return info, nil
	}

	s.mu.Lock()
	s.latest = release
	s.mu.Unlock()
	s.transition(StateAvailable)

	info.ReleaseNotes = release.ReleaseNotes
	info.ReleaseURL = release.URL
	info.PublishedAt = release.PublishedAt
	info.AssetSize = release.AssetByteSize
	info.UpdateAvailable = true
	return info, nil
}

// ApplyUpdate installs the release found by the last check, checking first
// if none is pending. A failed install restores the backup.
func (s *service) ApplyUpdate(ctx context.Context) error {
	if !s.enabled {
		return fail(CodeDisabled, s.disabledReason, nil)
	}

	if s.current() != StateAvailable {
		info, err := s.CheckForUpdate(ctx)
		if err != nil {
			return err
		}
		if !info.UpdateAvailable {
			return fail(CodeNoUpdate, "already running "+info.CurrentVersion, nil)
		}
	}

	if !s.transition(StateApplying, StateAvailable) {
		return fail(CodeInvalidState, fmt.Sprintf("cannot apply update while %s", s.current()), nil)
	}

	if err := s.backups.save(s.execPath, version.Version); err != nil {
		s.setError(err)
		return fail(CodeBackupFailed, "failed to back up current binary", err)
	}

	s.mu.RLock()
	release := s.latest
	s.mu.RUnlock()

	if err := s.source.UpdateTo(ctx, release, s.execPath); err != nil {
		s.setError(err)
		s.autoRollback()
		return fail(CodeApplyFailed, "failed to install update", err)
	}

	s.transition(StateRestarting)
	s.logger.Info("Update installed, restarting", "version", release.Version())
	s.scheduleRestart()
	return nil
}

// Rollback puts the backed up binary back and restarts.
func (s *service) Rollback(_ context.Context) error {
	if !s.enabled {
		return fail(CodeDisabled, s.disabledReason, nil)
	}
	if _, ok := s.backups.version(); !ok {
		return fail(CodeNoBackup, errNoBackup.Error(), nil)
	}
	if err := s.backups.restore(); err != nil {
		s.setError(err)
		return fail(CodeRollbackFailed, "failed to restore backup", err)
	}

	s.transition(StateRolledBack)
	s.logger.Info("Rollback complete, restarting")
	s.scheduleRestart()
	return nil
}

func (s *service) GetStatus() *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &Status{
		State:          s.state,
		CurrentVersion: version.Version,
		LastChecked:    s.lastChecked,
	}
	if s.latest != nil {
		st.TargetVersion = s.latest.Version()
	}
	if s.lastError != nil {
		st.Error = s.lastError.Error()
	}
	if s.backups != nil {
		st.BackupVersion, st.BackupAvailable = s.backups.version()
	}
	return st
}

// transition moves to next if the current state is one of from. An empty
// from allows any state.
func (s *service) transition(next State, from ...State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(from) > 0 && !slices.Contains(from, s.state) {
		return false
	}
	s.logger.Debug("Update state", "from", s.state, "to", next)
	s.state = next
	s.lastError = nil
	return true
}

func (s *service) current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *service) setError(err error) {
	s.mu.Lock()
	s.state = StateError
	s.lastError = err
	s.mu.Unlock()
	s.logger.Warn("Update failed", "error", err)
}

func (s *service) autoRollback() {
	if err := s.backups.restore(); err != nil {
		s.logger.Error("Automatic rollback failed", "error", err)
		return
	}
	s.transition(StateRolledBack)
}

func (s *service) scheduleRestart() {
	time.AfterFunc(s.delay, s.restart)
}

func signalSelf(logger *slog.Logger) {
	logger.Info("Sending SIGTERM to restart")
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		logger.Error("Failed to send SIGTERM", "error", err)
	}
}
