package early

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// LogLevel represents the logging level
type LogLevel int32

const (
	// LogLevelNone disables all logging
	LogLevelNone LogLevel = iota
	// LogLevelError enables error logging
	LogLevelError
	// LogLevelInfo enables info and error logging
	LogLevelInfo
	// LogLevelDebug enables all logging
	LogLevelDebug
)

var currentLogLevel atomic.Int32

var logger atomic.Pointer[slog.Logger]

func init() {
	currentLogLevel.Store(int32(LogLevelError))
	SetLogOutput(os.Stderr)
}

// SetLogLevel changes the level used by Debug, Info and Error.
func SetLogLevel(level LogLevel) {
	currentLogLevel.Store(int32(level))
}

// SetLogOutput sends log records to w. A nil writer discards them.
func SetLogOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger.Store(slog.New(h).With("component", "early"))
}

func logAt(threshold LogLevel, level slog.Level, format string, v ...interface{}) {
	if LogLevel(currentLogLevel.Load()) < threshold {
		return
	}
	logger.Load().Log(context.Background(), level, fmt.Sprintf(format, v...))
}

// Debug logs debug information
func Debug(format string, v ...interface{}) {
	logAt(LogLevelDebug, slog.LevelDebug, format, v...)
}

// Info logs info information
func Info(format string, v ...interface{}) {
	logAt(LogLevelInfo, slog.LevelInfo, format, v...)
}

// Error logs error information
func Error(format string, v ...interface{}) {
	logAt(LogLevelError, slog.LevelError, format, v...)
}
