// Package logging configures the process-wide slog logger from the
// portal's log settings.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a config level string onto slog.Level. The empty
// string means info. Unknown values return an error and info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Options selects the handler for New. Writer defaults to stderr.
type Options struct {
	Level      string
	Format     string // "text" (default) or "json"
	Writer     io.Writer
	SetDefault bool
}

// New builds a slog.Logger for the daemon. Debug level turns on
// source locations. When SetDefault is set the logger also becomes
// the process default so library code logging through slog lands in
// the same stream.
func New(opt Options) (*slog.Logger, error) {
	level, err := ParseLevel(opt.Level)
	if err != nil {
		return nil, err
	}
	w := opt.Writer
	if w == nil {
		w = os.Stderr
	}
	ho := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}
	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(opt.Format)) {
	case "", "text":
		h = slog.NewTextHandler(w, ho)
	case "json":
		h = slog.NewJSONHandler(w, ho)
	default:
		return nil, fmt.Errorf("unknown log format %q", opt.Format)
	}
	lg := slog.New(h)
	if opt.SetDefault {
		slog.SetDefault(lg)
	}
	return lg, nil
}
