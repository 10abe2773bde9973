package util

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

type loggerContextKey struct{}

// ParseLevel maps debug, info, warn, error to slog levels. Unknown input is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogger configures the global slog logger and returns it.
// format "json" writes JSON with source locations to stdout; anything else
// writes colorized text to stderr.
func InitLogger(level, format string) *slog.Logger {
	return initLogger(os.Stdout, os.Stderr, level, format)
}

func initLogger(jsonOut, textOut io.Writer, level, format string) *slog.Logger {
	out := textOut
	if isJSON(format) {
		out = jsonOut
	}
	logger := NewLogger(out, level, format)
	slog.SetDefault(logger)
	return logger
}

// NewLogger builds a logger writing to w without touching the default.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	slogLevel := ParseLevel(level)
	if isJSON(format) {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     slogLevel,
			AddSource: true,
		}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{Level: slogLevel}))
}

func isJSON(format string) bool {
	return strings.EqualFold(strings.TrimSpace(format), "json")
}

// ContextWithLogger stores logger in ctx.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// LoggerFromContext returns the logger stored in ctx or slog.Default().
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
