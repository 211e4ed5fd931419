package logger

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger instance. It falls back to slog's default until Setup runs
// so that packages used from tests or the CLI can log without initialization.
var Log = slog.Default()

// Options tune where and how verbosely the logger writes.
type Options struct {
	// File enables a rotated log file next to stdout when non-empty.
	File       string
	MaxSizeMB  int
	MaxBackups int
	Debug      bool
}

// Setup initializes the global logger based on the environment
func Setup(env string, opts ...Options) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	level := slog.LevelInfo
	if o.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var out io.Writer = os.Stdout
	if o.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    orDefault(o.MaxSizeMB, 50),
			MaxBackups: orDefault(o.MaxBackups, 5),
			Compress:   true,
		})
	}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	Log = slog.New(handler)
	slog.SetDefault(Log)
}

// With returns a child logger carrying the given attributes, e.g. the insurer being parsed.
func With(args ...any) *slog.Logger {
	return Log.With(args...)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Info logs an info message
func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}
