// Package logging provides structured logging for the Silk harness.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error, critical)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error, critical
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("device claimed", "node", "ot-ncp-01")
//	logger.Critical("posted error dropped", "node", "ot-ncp-01")
//
// The Critical level sits above error and is reserved for harness-integrity
// events such as a dropped posted error or a missed drain deadline.
package logging
