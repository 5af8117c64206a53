package logging

import (
	"log/slog"
	"os"
)

// Setup installs slog's default logger at the given level. Format is "json"
// for deployments or "text" for local runs; anything else falls back to JSON.
func Setup(level slog.Level, format string) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
