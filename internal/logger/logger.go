package logger

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	// LevelDebug for detailed debug information
	LevelDebug LogLevel = iota
	// LevelInfo for general operational information
	LevelInfo
	// LevelWarning for potentially problematic situations
	LevelWarning
	// LevelError for error conditions
	LevelError
	// LevelNone disables all logging
	LevelNone
)

var (
	mu sync.RWMutex

	// logger is the shared logger instance
	logger = newLogger(os.Stderr, LevelInfo, false)

	// exit is swapped out by tests
	exit = os.Exit
)

func newLogger(w io.Writer, level LogLevel, debugEnabled bool) *log.Logger {
	if level >= LevelNone {
		w = io.Discard
	}
	l := log.NewWithOptions(w, log.Options{
		Prefix:          "shroudlock",
		ReportTimestamp: true,
		TimeFormat:      "2006/01/02 15:04:05",
		ReportCaller:    debugEnabled,
		// skip the package-level wrapper frame
		CallerOffset: 1,
	})
	l.SetLevel(toCharmLevel(level))
	return l
}

func toCharmLevel(level LogLevel) log.Level {
	switch level {
	case LevelDebug:
		return log.DebugLevel
	case LevelInfo:
		return log.InfoLevel
	case LevelWarning:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.FatalLevel
	}
}

// InitLogger initializes the logger with specified options.
// In release mode only errors are shown unless a stricter level was asked for.
func InitLogger(level LogLevel, debugEnabled bool) {
	if !debugEnabled && level == LevelInfo {
		level = LevelError
	}
	SetOutput(os.Stderr, level, debugEnabled)
}

// SetOutput redirects logging to w.
func SetOutput(w io.Writer, level LogLevel, debugEnabled bool) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w, level, debugEnabled)
}

func current() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs debug level messages
func Debug(format string, args ...interface{}) {
	current().Debugf(format, args...)
}

// Info logs info level messages
func Info(format string, args ...interface{}) {
	current().Infof(format, args...)
}

// Warn logs warning level messages
func Warn(format string, args ...interface{}) {
	current().Warnf(format, args...)
}

// Error logs error level messages
func Error(format string, args ...interface{}) {
	current().Errorf(format, args...)
}

// Fatal logs a fatal error message and exits the program
func Fatal(format string, args ...interface{}) {
	// charmbracelet's Fatalf exits on its own; go through Errorf so the
	// message is printed even when logging is disabled and tests can stub exit.
	l := current()
	if l.GetLevel() > log.ErrorLevel {
		l = newLogger(os.Stderr, LevelError, false)
	}
	l.Errorf("FATAL: "+format, args...)
	exit(1)
}
