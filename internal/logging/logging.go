// Package logging provides structured logging setup for tuespacio.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New builds a logger writing to w.
// Dev mode uses human-readable text at debug level; prod uses JSON at info.
func New(w io.Writer, devMode bool) *slog.Logger {
	if devMode {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Setup initializes the default slog logger on stderr, keeping stdout
// free for command output.
func Setup(devMode bool) {
	slog.SetDefault(New(os.Stderr, devMode))
}

// SetupQuiet installs a text logger that only reports warnings and errors.
// Used by one-shot CLI commands.
func SetupQuiet() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))
}
