package app

import (
	"io"
	"log/slog"

	"github.com/randalmurphal/designflow/internal/config"
)

// Log formats accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewLogger builds the process logger. debug forces DEBUG level. An empty
// cfg.Format selects fallbackFormat.
func NewLogger(cfg config.LogConfig, debug bool, fallbackFormat string, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	} else if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	format := cfg.Format
	if format == "" {
		format = fallbackFormat
	}

	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
