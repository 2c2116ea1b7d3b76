package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup initialises the global slog default logger.
// level may be "debug", "info", "warn", or "error" (default "info").
// format may be "json" or "text" (default "json").
// Every record carries the service name; debug logging also records the source line.
func Setup(service, level, format string) {
	SetupTo(os.Stdout, service, level, format)
}

// SetupTo is Setup writing to w.
func SetupTo(w io.Writer, service, level, format string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl == slog.LevelDebug}

	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler).With("service", service))
}
