// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
	Level(zerolog.WarnLevel).
	With().Timestamp().Logger()

// Options controls Setup.
type Options struct {
	Level   string // trace|debug|info|warn|error; default warn
	JSON    bool   // emit JSON lines instead of console output
	NoColor bool
	Out     io.Writer // default os.Stderr
}

// Setup replaces the process logger. It is meant to be called once from the
// CLI before any work starts.
func Setup(opts Options) error {
	lvl := zerolog.WarnLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		lvl = l
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if !opts.JSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: opts.NoColor}
	}
	logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return nil
}

// L returns the process logger.
func L() *zerolog.Logger {
	return &logger
}

// With returns a child logger tagged with a component name.
func With(component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}
