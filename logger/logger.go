// Package logger is a leveled logger on top of log/slog. Output is discarded
// unless a log file is configured, so terminal and stdio protocols stay clean.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level represents a log level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel parses a log level string
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
}

// Logger wraps a slog.Logger whose level and sink can change at runtime.
// Loggers derived with With follow those changes.
type Logger struct {
	mu    sync.Mutex
	level *slog.LevelVar
	out   *switchWriter
	slog  *slog.Logger
	file  *os.File
}

// switchWriter forwards to a writer that can be replaced.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

var Default = New()

// New creates a logger configured from PENGY_LOG_LEVEL and PENGY_LOG_FILE.
func New() *Logger {
	l := &Logger{level: new(slog.LevelVar), out: &switchWriter{w: io.Discard}}
	l.level.Set(slog.LevelInfo)
	l.slog = slog.New(slog.NewTextHandler(l.out, &slog.HandlerOptions{Level: l.level}))

	if s := os.Getenv("PENGY_LOG_LEVEL"); s != "" {
		if level, err := ParseLevel(s); err == nil {
			l.level.Set(level.slogLevel())
		}
	}
	if path := os.Getenv("PENGY_LOG_FILE"); path != "" {
		_ = l.OpenFile(path)
	}
	return l
}

// OpenFile sends output to path (appending), closing any previous file.
func (l *Logger) OpenFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
	}
	l.file = f
	l.out.set(f)
	return nil
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.out.set(io.Discard)
	return err
}

func (l *Logger) SetLevel(level Level) {
	l.level.Set(level.slogLevel())
}

func (l *Logger) SetOutput(w io.Writer) {
	l.out.set(w)
}

// Slog exposes the underlying structured logger.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// With returns a slog.Logger carrying the given attributes.
func (l *Logger) With(args ...any) *slog.Logger {
	return l.Slog().With(args...)
}

func (l *Logger) Debug(msg string, args ...any) { l.Slog().Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.Slog().Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.Slog().Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.Slog().Error(msg, args...) }

// Package-level functions that use the default logger

func Debug(msg string, args ...any) { Default.Debug(msg, args...) }
func Info(msg string, args ...any)  { Default.Info(msg, args...) }
func Warn(msg string, args ...any)  { Default.Warn(msg, args...) }
func Error(msg string, args ...any) { Default.Error(msg, args...) }

func Close() error { return Default.Close() }
