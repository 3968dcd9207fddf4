// Package dictlog sets up the structured logger shared by every component.
// A single zerolog.Logger instance is built in cmd/dictd and passed to the
// ingest pipeline and the transport listener, which hands it on to each
// protocol session. Tests that need a logger pass a disabled one.
package dictlog

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process-wide logger, writing human-readable console
// output to w (normally os.Stderr).
func New(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.New(io.Discard)
}
