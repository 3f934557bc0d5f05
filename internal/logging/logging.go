// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewWriter returns the sink for format: a pretty console writer for
// "console", out itself for anything else (JSON lines).
func NewWriter(out io.Writer, format string) io.Writer {
	if format == "console" {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return out
}

// Setup points the global logger at stderr. debug forces the debug level
// regardless of level.
func Setup(level, format string, debug bool) error {
	return SetupWriter(os.Stderr, level, format, debug)
}

func SetupWriter(out io.Writer, level, format string, debug bool) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if debug {
		lvl = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(NewWriter(out, format)).With().Timestamp().Logger()
	return nil
}

// ParseLevel accepts zerolog level names; empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}
