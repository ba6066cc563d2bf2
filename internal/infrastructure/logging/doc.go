// Package logging provides structured logging for the DTU bridge.
//
// It wraps log/slog so every component logs the same way:
//
//   - JSON output for production, text output for development
//   - service and version attributes on every entry
//   - level filtering (debug, info, warn, error)
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("fanout").Warn("publish failed", "topic", topic, "error", err)
//
// Never log the MQTT password, InfluxDB token, or JWT secret.
package logging
