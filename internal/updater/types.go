package updater

import (
	"context"
	"time"
)

// State is a step of the self-update state machine.
type State string

// Update states.
const (
	StateIdle        State = "idle"
	StateChecking    State = "checking"
	StateAvailable   State = "available"
	StateApplying    State = "applying"
	StateRestarting  State = "restarting"
	StateError       State = "error"
	StateRolledBack  State = "rolled_back"
)

// Service checks for and installs new lampnode releases.
type Service interface {
	CheckForUpdate(ctx context.Context) (*UpdateInfo, error)
	// ApplyUpdate backs up the running binary, replaces it and restarts.
	ApplyUpdate(ctx context.Context) error
	// Rollback restores the backed up binary and restarts.
	Rollback(ctx context.Context) error
	GetStatus() *Status
	IsEnabled() bool
	DisabledReason() string
}

// UpdateInfo describes the newest release relative to the running build.
type UpdateInfo struct {
	CurrentVersion  string
	LatestVersion   string
	ReleaseNotes    string
	ReleaseURL      string
	PublishedAt     time.Time
	AssetSize       int
	UpdateAvailable bool
}

// Status is a snapshot of the updater.
type Status struct {
	State           State
	CurrentVersion  string
	TargetVersion   string
	Error           string
	LastChecked     *time.Time
	BackupAvailable bool
	BackupVersion   string
}

// Options configures NewService.
type Options struct {
	// Repository is the GitHub slug releases are read from.
	Repository string
	Prerelease bool
	// BackupDir holds the previous binary. Defaults to the user cache dir.
	BackupDir string
	// Restart is called after the binary was replaced. Defaults to sending
	// SIGTERM to this process and letting the supervisor start it again.
	Restart func()
	// RestartDelay lets the HTTP response go out before Restart runs.
	RestartDelay time.Duration
}
