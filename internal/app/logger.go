package app

import (
	"io"
	"log/slog"
	"strings"
)

// newLogger builds the application's own slog.Logger. It never touches the
// global logger, so several App instances can log to different writers in
// one process. Unknown levels fall back to info.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(levelStr))); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(formatStr) {
	case "text":
		handler = slog.NewTextHandler(outW, opts)
	default:
		handler = slog.NewJSONHandler(outW, opts)
	}
	return slog.New(handler).With("service", "blockflow")
}
