// Package logger builds the application logger.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New creates a console logger at the given level. Components receive the
// logger (or a child of it) explicitly; there is no process-wide mutable
// logger state.
func New(level string) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
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
