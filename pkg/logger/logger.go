package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns the default service logger: JSON to stdout at info level.
// Used before configuration is loaded.
func New() zerolog.Logger {
	return zerolog.New(os.Stdout).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()
}

// FromConfig rebuilds the logger once configuration is available.
func FromConfig(level string, pretty, noColor bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	log := New().Level(lvl)

	if pretty {
		log = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			NoColor:    noColor,
			TimeFormat: time.RFC3339,
		})
	}

	return log
}
