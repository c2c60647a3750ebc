package cli

import (
	"io"
	"log/slog"
)

// setupLogging installs the default slog logger. Verbosity or --debug
// enables debug output.
func setupLogging(w io.Writer, verbose int, debug bool) {
	level := slog.LevelInfo
	if verbose > 0 || debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose > 1,
	})
	slog.SetDefault(slog.New(handler))
}
