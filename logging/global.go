// Package logging wraps log/slog with a console handler and a rotating JSON
// file handler, plus package-level helpers used across the service.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// LoggingService owns the process logger and the file writer behind it
type LoggingService struct {
	Logger *slog.Logger
	file   *RotatingLogger
}

// DefaultLoggingService is set by InitLogger and read by the package helpers
var DefaultLoggingService *LoggingService

// Options tunes the logger built by InitLoggerWithOptions
type Options struct {
	Level          string
	RetentionWeeks int
	MaxFileSize    int64
}

// InitLogger initializes the global logger instance with default options.
// An empty logDir keeps logging on the console only.
func InitLogger(logDir string) {
	InitLoggerWithOptions(logDir, Options{Level: "info", RetentionWeeks: 4, MaxFileSize: defaultMaxFileSize})
}

// InitLoggerWithOptions initializes the global logger and makes it the slog default
func InitLoggerWithOptions(logDir string, opts Options) {
	level := parseLogLevel(opts.Level)
	service := &LoggingService{}

	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	handlers := []slog.Handler{console}

	if logDir != "" {
		file, err := openRotatingLogger(logDir, opts.RetentionWeeks, opts.MaxFileSize)
		if err != nil {
			slog.New(console).Error("Failed to initialize rotating logger, using console only", "error", err)
		} else {
			service.file = file
			handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
		}
	}

	service.Logger = slog.New(&multiHandler{handlers: handlers})
	DefaultLoggingService = service
	slog.SetDefault(service.Logger)
}

// Close flushes and closes the rotating log file, if any
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.file == nil {
		return nil
	}
	return DefaultLoggingService.file.Close()
}

func parseLogLevel(level string) slog.Level {
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

// Logger returns the process logger, falling back to a console logger before InitLogger
func Logger() *slog.Logger {
	return current()
}

func current() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		// Fallback to console logger if not initialized
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return DefaultLoggingService.Logger
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	current().Debug(msg, args...)
}

// multiHandler fans a record out to every handler that accepts its level
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
