// Package logger configures the global zerolog logger from command line options.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is an options group embedded into every binary's flags.
type Logger struct {
	Level  string `long:"log-level"  env:"LOG_LEVEL"  description:"Log level" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
	Format string `long:"log-format" env:"LOG_FORMAT" description:"Log format" choice:"console" choice:"json" default:"console"`
	Color  bool   `long:"log-color"  env:"LOG_COLOR"  description:"Colorize console output"`
}

// Setup applies the options to the global logger.
func (l Logger) Setup() {
	l.SetupWriter(os.Stderr)
}

// SetupWriter applies the options and directs output to w.
func (l Logger) SetupWriter(w io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(ParseLevel(l.Level))

	var out io.Writer = w
	if l.Format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    !l.Color,
			TimeFormat: time.DateTime,
		}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// ParseLevel converts a level name into a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}

	return lvl
}
