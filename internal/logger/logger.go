// Package logger holds the process-wide structured logger used by the
// allocators. It discards everything until Init is called or MEMKIT_LOG is
// set in the environment.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// L is the global logger instance. It's initialized to discard all output by default.
var L = slog.New(slog.NewTextHandler(io.Discard, nil))

const (
	// EnvLevel enables logging at the named level (debug, info, warn, error).
	EnvLevel = "MEMKIT_LOG"
	// EnvFormat selects the handler: "json" or anything else for text.
	EnvFormat = "MEMKIT_LOG_FORMAT"
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Writer  io.Writer  // Destination. Default: os.Stderr
	Level   slog.Level // Minimum log level. Default: LevelInfo when enabled
	JSON    bool       // Use the JSON handler instead of the text handler
}

func init() {
	if opts, ok := FromEnv(os.Getenv); ok {
		Init(opts)
	}
}

// Init replaces L according to opts.
func Init(opts Options) {
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		L = slog.New(slog.NewJSONHandler(w, handlerOpts))
		return
	}
	L = slog.New(slog.NewTextHandler(w, handlerOpts))
}

// FromEnv builds Options from the MEMKIT_LOG* variables using getenv.
// ok is false when logging was not requested.
func FromEnv(getenv func(string) string) (Options, bool) {
	raw := strings.TrimSpace(getenv(EnvLevel))
	if raw == "" {
		return Options{}, false
	}
	level, ok := ParseLevel(raw)
	if !ok {
		level = slog.LevelInfo
	}
	return Options{
		Enabled: true,
		Level:   level,
		JSON:    strings.EqualFold(getenv(EnvFormat), "json"),
	}, true
}

// ParseLevel maps a level name to its slog.Level. "1", "true" and "on"
// are accepted as shorthands for debug.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "1", "true", "on":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
