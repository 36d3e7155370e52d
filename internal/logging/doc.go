// Package logging provides slog loggers with per-module levels.
//
// Records go to stdout when it is connected to something, to the systemd
// journal when journald is running, and always to an in-memory history that
// the HTTP API serves at /api/logs.
//
// Initialize once at startup, then ask for a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"backend": "debug"},
//	})
//	logger := logging.GetLogger("controller")
//
// Levels are held in *slog.LevelVar values, so SetLevels can apply a
// reloaded configuration without rebuilding any handler.
//
// Journal entries carry SYSLOG_IDENTIFIER=lampnode and one upper-case field
// per attribute:
//
//	journalctl -t lampnode -f
//	journalctl -t lampnode MODULE=backend
//
// Matching TOML, where every key other than level and format names a module:
//
//	[logging]
//	level = "info"
//	format = "text"
//	backend = "debug"
package logging
