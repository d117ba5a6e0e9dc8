package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a zerolog logger writing to stderr at info level. Check
// output owns stdout, so diagnostics must never land there.
func New() zerolog.Logger {
	return NewWithLevel("info")
}

// NewWithLevel returns a stderr logger at the named level. Unparseable
// names fall back to info.
func NewWithLevel(level string) zerolog.Logger {
	return zerolog.New(os.Stderr).Level(parseLevel(level)).With().Timestamp().Logger()
}

// NewVerbose returns a stderr logger at the level implied by a counted
// verbosity flag.
func NewVerbose(verbosity int) zerolog.Logger {
	return zerolog.New(os.Stderr).Level(LevelFromVerbosity(verbosity)).With().Timestamp().Logger()
}

// LevelFromVerbosity maps repeated -v flags onto log levels. A silent
// invocation only reports problems; each -v digs one level deeper.
func LevelFromVerbosity(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}
