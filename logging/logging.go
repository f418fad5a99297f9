// Package logging builds the slog loggers used by the attest binaries.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

var (
	// ErrInvalidLevel is returned for an unknown log level name.
	ErrInvalidLevel = errors.New("invalid log level")

	// ErrInvalidFormat is returned for an unknown log format name.
	ErrInvalidFormat = errors.New("invalid log format")
)

// Output formats.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w %q: must be one of debug, info, warn, error", ErrInvalidLevel, s)
	}
}

// New creates a logger writing to w at level in one of the text, json or
// pretty formats. An empty format selects text.
func New(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	opts := slog.HandlerOptions{Level: level}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatText, "":
		return slog.New(slog.NewTextHandler(w, &opts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &opts)), nil
	case FormatPretty:
		return slog.New(NewPrettyHandler(w, PrettyHandlerOptions{SlogOpts: opts})), nil
	default:
		return nil, fmt.Errorf("%w %q: must be one of text, json, pretty", ErrInvalidFormat, format)
	}
}
