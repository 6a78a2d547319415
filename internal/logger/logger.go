// Package logger configures the process-wide zerolog logger from the
// log_level and log_format settings.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger: level and format ("console" or "json"),
// writing to stderr.
func Init(level string, format string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	log.Logger = New(format, os.Stderr)
}

// New returns a logger writing to w in the given format.
func New(format string, w io.Writer) zerolog.Logger {
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel maps a config level name to a zerolog level. Unknown names
// mean info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
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

// Get returns the global logger set by Init.
func Get() zerolog.Logger {
	return log.Logger
}
