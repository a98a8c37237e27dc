package photoblog

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a leveled zerolog logger writing to w. pretty selects the
// human console format; otherwise each entry is one JSON object.
func NewLogger(w io.Writer, level string, pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
