// Package logging provides structured logging for the mining fleet core.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("poll complete", "devices", 412)
//	logger.Error("poll failed", "error", err)
//
// *Logger satisfies the small Logger interfaces declared by the domain
// packages (selection, listview, poller), so it can be passed to their
// SetLogger methods directly.
//
// Never log secrets, tokens or passwords.
package logging
