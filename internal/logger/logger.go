// Package logger provides levelled logging for trialdex.
//
// Debug, Info and Warn are printed only in verbose mode (the --verbose flag).
// Error is always printed. Lines have the form
//
//	15-10-2026 14:03:22 - INFO - loader - fetched 12 records
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// TimeFormat is the timestamp layout of every log line.
const TimeFormat = "02-01-2006 15:04:05"

// DefaultName is the component name used by the package-level functions.
const DefaultName = "trialdex"

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	now               = time.Now
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Logger writes lines tagged with a component name.
type Logger struct {
	name string
}

// Named returns a logger for one component.
func Named(name string) *Logger {
	return &Logger{name: name}
}

// Name returns the component name.
func (l *Logger) Name() string { return l.name }

// Debug prints a message if verbose mode is enabled.
func (l *Logger) Debug(format string, args ...any) { write(l.name, "DEBUG", true, format, args...) }

// Info prints an informational message if verbose mode is enabled.
func (l *Logger) Info(format string, args ...any) { write(l.name, "INFO", true, format, args...) }

// Warn prints a warning if verbose mode is enabled.
func (l *Logger) Warn(format string, args ...any) { write(l.name, "WARNING", true, format, args...) }

// Error prints an error message regardless of verbose mode.
func (l *Logger) Error(format string, args ...any) { write(l.name, "ERROR", false, format, args...) }

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) { write(DefaultName, "DEBUG", true, format, args...) }

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) { write(DefaultName, "INFO", true, format, args...) }

// Warn prints a warning if verbose mode is enabled.
func Warn(format string, args ...any) { write(DefaultName, "WARNING", true, format, args...) }

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) { write(DefaultName, "ERROR", false, format, args...) }

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

func write(name, level string, verboseOnly bool, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verboseOnly && !verbose {
		return
	}
	fmt.Fprintf(output, "%s - %s - %s - %s\n", now().Format(TimeFormat), level, name, fmt.Sprintf(format, args...))
}
