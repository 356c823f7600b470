// Package logging provides structured logging for the ingestion worker.
// It wraps zerolog with a consistent setup: JSON output for production,
// human-readable console output for development.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	// Level sets the minimum log level (debug, info, warn, error).
	Level string

	// ServiceName is included in all log entries.
	ServiceName string

	// JSONFormat enables JSON output when true, console output when false.
	JSONFormat bool

	// Output sets the writer for logs (defaults to os.Stdout).
	Output io.Writer
}

// New builds a zerolog.Logger from cfg.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if !cfg.JSONFormat {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.ServiceName != "" {
		logger = logger.Str("service", cfg.ServiceName)
	}
	return logger.Logger()
}

// Nop returns a disabled logger for tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
