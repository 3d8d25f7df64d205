package telemetry

import (
	"io"
	"log/slog"
	"strings"
)

// SetupLogger configures the global slog default logger based on the supplied format and level
// strings read from application configuration.
//
// format: "json"  → JSONHandler (machine readable; for piping a run's diagnostics elsewhere)
//
//	anything else → TextHandler (human readable)
//
// level: "debug", "info", "warn", "error" (case-insensitive); defaults to "warn".
//
// Records are written to w, which main sets to stderr so stdout carries only the
// console report. The configured logger is installed as the default so slog calls
// elsewhere pick it up without carrying a *slog.Logger around.
func SetupLogger(w io.Writer, format, level string) {
	lvl := parseLevel(level)

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug, // include file:line only when debugging
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
	slog.Debug("logger initialised", "format", format, "level", lvl.String())
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
