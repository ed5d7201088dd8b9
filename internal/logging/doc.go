// Package logging provides structured logging with per-module log levels.
//
// Records go to stdout when it is a terminal, pipe, socket or file, and to the
// systemd journal when journald is reachable (both through MultiHandler when
// both are). Journal entries carry SYSLOG_IDENTIFIER=spyglass and one upper
// case field per attribute, so they can be filtered with
//
//	journalctl -t spyglass MODULE=capture
//
// Initialize once at startup, then ask for a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"capture": "debug"},
//	})
//	logger := logging.GetLogger("capture")
//
// Loggers obtained before Initialize are cached and pick up the configured
// level and handlers once it runs.
//
// TOML layout:
//
//	[logging]
//	level = "info"
//	format = "text"
//	api = "warn"
//	capture = "debug"
package logging
