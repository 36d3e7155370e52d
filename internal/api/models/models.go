package models

import (
	"time"

	"github.com/smazurov/lampnode/internal/identity"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"a1b2c3d" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go runtime version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"OS and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// Lamp status models
type IndicatorStatus struct {
	Name  string `json:"name" example:"sysfs:usr_led" doc:"Backing hardware"`
	Level bool   `json:"level" doc:"Whether the output is currently driven high"`
}

type StatusData struct {
	State         string            `json:"state" example:"blink" enum:"off,on,blink" doc:"Current lamp state"`
	Indicator     IndicatorStatus   `json:"indicator" doc:"Physical indicator"`
	Identity      identity.Snapshot `json:"identity" doc:"Backend object ids resolved so far"`
	PushConnected bool              `json:"push_connected" doc:"Whether the push transport is connected"`
	Version       string            `json:"version" example:"1.2.0" doc:"Application version"`
}

type StatusResponse struct {
	Body StatusData
}

type PressData struct {
	Queued bool `json:"queued" doc:"Always true; presses coalesce until the control loop runs"`
}

type PressResponse struct {
	Body PressData
}

// Log models
type LogsInput struct {
	Limit int `query:"limit" minimum:"0" maximum:"1000" default:"100" doc:"Maximum number of entries, newest last"`
}

type LogEntry struct {
	Time    string         `json:"time" example:"2025-01-27T10:30:00.123Z" doc:"Record time"`
	Level   string         `json:"level" example:"info" doc:"Log level"`
	Module  string         `json:"module" example:"controller" doc:"Logger module"`
	Message string         `json:"message" doc:"Log message"`
	Attrs   map[string]any `json:"attrs,omitempty" doc:"Structured attributes"`
}

type LogsData struct {
	Entries []LogEntry `json:"entries" doc:"Log entries, oldest first"`
	Count   int        `json:"count" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}

// Systemd models
type ServiceStatus struct {
	Service string `json:"service" example:"lampnode.service" doc:"Unit name"`
	Status  string `json:"status" example:"active" doc:"Unit ActiveState"`
}

type ServiceStatusResponse struct {
	Body ServiceStatus
}

type ServiceAction struct {
	Service string `json:"service" example:"lampnode.service" doc:"Unit name"`
	Action  string `json:"action" example:"restart" doc:"Requested action"`
	Success bool   `json:"success" doc:"Whether systemd accepted the job"`
}

type ServiceActionResponse struct {
	Body ServiceAction
}

// UpdateCheckData describes the newest release.
type UpdateCheckData struct {
	CurrentVersion  string    `json:"current_version" example:"0.4.0" doc:"Running version"`
	LatestVersion   string    `json:"latest_version" example:"0.5.0" doc:"Newest published version"`
	ReleaseNotes    string    `json:"release_notes,omitempty" doc:"Release notes of the newest version"`
	ReleaseURL      string    `json:"release_url,omitempty" doc:"Release page"`
	PublishedAt     time.Time `json:"published_at,omitzero" doc:"Release date"`
	AssetSize       int       `json:"asset_size,omitempty" doc:"Download size in bytes"`
	UpdateAvailable bool      `json:"update_available" doc:"Whether the newest version is newer than the running one"`
}

type UpdateCheckResponse struct {
	Body UpdateCheckData
}

// UpdateStatusData is the updater state.
type UpdateStatusData struct {
	Enabled         bool       `json:"enabled" doc:"False when the binary cannot be replaced"`
	DisabledReason  string     `json:"disabled_reason,omitempty"`
	State           string     `json:"state" enum:"idle,checking,available,applying,restarting,error,rolled_back"`
	CurrentVersion  string     `json:"current_version"`
	TargetVersion   string     `json:"target_version,omitempty"`
	Error           string     `json:"error,omitempty"`
	LastChecked     *time.Time `json:"last_checked,omitempty"`
	BackupAvailable bool       `json:"backup_available"`
	BackupVersion   string     `json:"backup_version,omitempty"`
}

type UpdateStatusResponse struct {
	Body UpdateStatusData
}

type UpdateActionResponse struct {
	Body struct {
		Message string `json:"message" example:"Update applied, restarting" doc:"Status message"`
	}
}
