// Package logging configures the process-wide zerolog logger.
//
// Diagnostics go to stderr so they never mix with search results on stdout.
// The console writer drops colours when stderr is not a terminal.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// DefaultLevel keeps informational notes (skipped override files etc.) quiet
const DefaultLevel = zerolog.WarnLevel

// ParseLevel parses a level name, falling back to DefaultLevel when it is not recognised
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultLevel
	}
	if s == "warning" {
		return zerolog.WarnLevel
	}

	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return DefaultLevel
	}
	return lvl
}

// Setup installs a console logger writing to w at the given level
func Setup(level zerolog.Level, w io.Writer) zerolog.Logger {
	console := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !isTerminal(w),
		TimeFormat: "15:04:05",
	}

	logger := zerolog.New(console).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
