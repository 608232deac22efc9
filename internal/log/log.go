// Package log provides structured logging for go-drowsy.
// It wraps slog with sensible defaults for production use.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *slog.Logger
	file   *lumberjack.Logger
	once   sync.Once
)

// Options configures the global logger.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to info.
	Level string

	// File, when set, also writes logs to a size-rotated file.
	File string

	// Output is the console writer. Defaults to os.Stdout.
	Output io.Writer
}

// Init initializes the global logger. Only the first call has any effect.
func Init(opts Options) {
	once.Do(func() {
		var rotating *lumberjack.Logger
		logger, rotating = New(opts)
		file = rotating
		slog.SetDefault(logger)
	})
}

// New builds a logger without installing it. The returned rotating file
// is nil when opts.File is empty; the caller closes it.
func New(opts Options) (*slog.Logger, *lumberjack.Logger) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var rotating *lumberjack.Logger
	if opts.File != "" {
		rotating = &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    50, // megabytes
			MaxAge:     7,  // days
			MaxBackups: 3,
		}
		out = io.MultiWriter(out, rotating)
	}

	handlerOpts := &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	}

	// Use JSON in production, text in development
	if os.Getenv("GO_ENV") == "production" {
		return slog.New(slog.NewJSONHandler(out, handlerOpts)), rotating
	}
	return slog.New(slog.NewTextHandler(out, handlerOpts)), rotating
}

// ParseLevel maps a level name to a slog level. Unknown names give info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Close closes the rotating log file, if any.
func Close() error {
	if file == nil {
		return nil
	}
	return file.Close()
}

// L returns the global logger instance.
func L() *slog.Logger {
	if logger == nil {
		Init(Options{Level: "info"})
	}
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
