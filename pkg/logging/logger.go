// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(string(cfg.Level)))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a level name to a zerolog.Level. Unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Timeline moves (direction, cursor, items)
//   - Prefetch progress and early stops at the end of a collection
//   - Cache operations (hit/miss, key, TTL, conditional requests)
//
// Info: Normal operation events
//   - Batch fetch start/completion
//   - Retries that eventually succeeded
//   - Metrics listener startup
//
// Warn: Warning conditions that don't prevent operation
//   - Prefetch interrupted by a failed fetch
//   - Retryable API errors and exhausted retries
//   - Cache errors (fallback to direct request)
//
// Error: Error conditions requiring attention
//   - Failed HTTP requests (transport level)
//   - Configuration errors
//
// Context Fields:
//   - component: Emitting component (rbx-client, users, cache, ...)
//   - endpoint: Collection endpoint or request URL
//   - cursor: Page cursor used for a move
//   - direction: forward or backwards
//   - items: Number of items on a page or in a result
//   - status_code: HTTP status code
//   - error_class: Error classification (client, server, rate_limit, network, decode)
//   - etag: ETag value for conditional requests
//   - ttl: Cache entry TTL
