// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

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
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
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
//   - Cache operations (hit/miss, key, TTL)
//   - Key pool rotation (index tried, cooldown state)
//   - Rate limit window counts
//
// Info: Normal operation events
//   - Successful fetches and their source (cache, primary, fallback)
//   - Cache invalidations
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Fallback to the secondary provider (quota, rate limit, key exhaustion)
//   - Key placed on cooldown
//   - Store errors absorbed by fail-open paths
//
// Error: Error conditions requiring attention
//   - Both providers failed for a request
//   - Redis unreachable at startup
//   - Configuration errors
//
// Context Fields:
//   - kind: Data kind (last_match, profile, history, guild_config)
//   - subject: Steam account ID the request is about
//   - source: Where the response came from (cache, primary, fallback)
//   - provider: Upstream name (stratz, opendota)
//   - reason: Why a fallback happened (quota, rate_limited, keys_exhausted, ...)
//   - retry_after: Seconds until a denied rate-limit window resets
//   - ttl: Cache entry TTL
