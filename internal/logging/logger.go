// Package logging builds the zerolog logger shared by all components.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger aliases zerolog.Logger so callers can depend on the logging
// contract without importing the third-party module directly.
type Logger = zerolog.Logger

// New constructs a logger writing to out (stderr when nil).
// format is "json" or "console"; an unknown level falls back to info.
func New(level, format string, out io.Writer) Logger {
	if out == nil {
		out = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() Logger {
	return zerolog.Nop()
}
