package internal

import (
	"io"
	"log/slog"
	"os"
)

// Creates the process logger writing to w.
//
// Terminals get human-readable text records; anything else gets JSON, one
// record per line. The level follows [LogLevel] and verbose mode adds
// source locations.
func NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     LogLevel(),
		AddSource: IsVerbose(),
	}

	var handler slog.Handler
	if isTerminal(w) {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler.WithGroup(Name))
}

// Whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
