package logger

import (
	"io"
	"log/slog"
	"os"
)

type Logger interface {
	Info(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

type StdLogger struct {
	internalLogger *slog.Logger
}

func New() Logger {
	return NewWithOutput(os.Stderr, slog.LevelInfo)
}

// NewWithOutput routes log lines to w at the given level. The CLI uses
// this to point diagnostics at its log file.
func NewWithOutput(w io.Writer, level slog.Level) Logger {
	l := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return &StdLogger{internalLogger: l}
}

func (l *StdLogger) Info(msg string, args ...interface{}) {
	l.internalLogger.Info(msg, args...)
}

func (l *StdLogger) Debug(msg string, args ...interface{}) {
	l.internalLogger.Debug(msg, args...)
}

func (l *StdLogger) Warn(msg string, args ...interface{}) {
	l.internalLogger.Warn(msg, args...)
}

func (l *StdLogger) Error(msg string, args ...interface{}) {
	l.internalLogger.Error(msg, args...)
}

// Nop discards everything. Useful as a default so callers never have
// to nil-check their logger.
type Nop struct{}

func (Nop) Info(msg string, args ...interface{})  {}
func (Nop) Debug(msg string, args ...interface{}) {}
func (Nop) Warn(msg string, args ...interface{})  {}
func (Nop) Error(msg string, args ...interface{}) {}
