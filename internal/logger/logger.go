package logger

import (
	"io"
	"os"

	"github.com/richinsley/namedsem/config"
	"github.com/rs/zerolog"
)

// NewLogger writes to stderr: stdout belongs to the session transport when
// semctl serves a host over its standard streams.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.Log.Pretty {
		w = zerolog.ConsoleWriter{Out: w}
	}

	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("serviceName", cfg.Name).
		Str("ver", cfg.Version).
		Str("env", cfg.Environment).
		Caller().
		Logger()
}
