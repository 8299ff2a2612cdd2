// Package logging configures the process-wide zerolog logger.
// Logs go to stderr so stdout stays reserved for the command JSON output.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls logger construction.
type Options struct {
	// Pretty switches from JSON lines to a human-readable console format.
	Pretty bool
	// Verbose lowers the level to debug.
	Verbose bool
	// Writer overrides the output sink (stderr when nil).
	Writer io.Writer
}

// Setup builds the logger, installs it as the global logger, and returns it.
func Setup(opts Options) zerolog.Logger {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	out := writer
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(level)
	log.Logger = logger

	return logger
}
