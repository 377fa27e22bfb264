// Package logging provides structured logging with per-module log level configuration.
//
// Console output goes to stderr so stdout stays free for command output
// such as JSON catalogs and rendered command lines. When Config.Journal is
// set and journald is reachable, records are also sent to the systemd
// journal with SYSLOG_IDENTIFIER=ffjob.
//
// Initialize once after configuration is loaded:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"probe":  "debug",
//			"ffmpeg": "warn",
//		},
//	})
//
// and fetch module loggers where needed:
//
//	logger := logging.GetLogger("encode").With("run_id", id)
//	logger.Info("Encoder started", "pid", pid)
//
// Loggers fetched before Initialize are cached and follow later level
// changes through their slog.LevelVar.
//
// Modules used by ffjob:
//
//	probe   - ffprobe invocations and catalog parsing
//	encode  - supervisor lifecycle
//	ffmpeg  - encoder output lines, at the level ffmpeg reported
//	job     - job loading and validation
//	api     - status API requests
//	nats    - event publishing and remote cancel
//	watch   - job file watcher
//
// Viewing journal output:
//
//	journalctl -t ffjob MODULE=encode
//	journalctl -t ffjob RUN_ID=<id>
package logging
