// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance for interactive use (colored console
// output on stderr) and for detached background syncs, which write to a
// size-rotated file through lumberjack.
//
// # Context Awareness
//
// The WithRayID helper extracts the RayID from a Fiber context and attaches it
// to the log entry, so every log line of a browse request can be correlated.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: json or console
//   - File: optional rotated log file
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Sync started")
package logger
