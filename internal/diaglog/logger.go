// Package diaglog is the daemon's leveled diagnostic log. It is off until
// Configure enables it and writes one RFC 3339 timestamped line per entry.
package diaglog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level controls diagnostic log verbosity.
type Level int

const (
	// LevelDebug emits all diagnostic entries.
	LevelDebug Level = iota
	// LevelInfo emits info, warn, error.
	LevelInfo
	// LevelWarn emits warn, error.
	LevelWarn
	// LevelError emits only errors.
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
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel parses debug, info, warn (or warning) and error. Empty is info.
func ParseLevel(raw string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
}

// Logger writes diagnostic entries to a file or a fixed writer.
type Logger struct {
	path    string
	mu      sync.Mutex
	enabled bool
	level   Level
	out     io.Writer
	file    *os.File
	now     func() time.Time
}

// New creates a logger that appends to path once enabled. An empty path
// logs to stderr.
func New(path string) *Logger {
	return &Logger{
		path:  strings.TrimSpace(path),
		level: LevelInfo,
		now:   time.Now,
	}
}

// NewWriter creates a logger that writes to w once enabled.
func NewWriter(w io.Writer) *Logger {
	return &Logger{
		out:   w,
		level: LevelInfo,
		now:   time.Now,
	}
}

// Discard returns a logger whose output goes nowhere.
func Discard() *Logger {
	return NewWriter(io.Discard)
}

// Configure updates runtime logging controls.
func (l *Logger) Configure(enabled bool, levelRaw string) error {
	level, err := ParseLevel(levelRaw)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.level = level
	l.enabled = enabled
	if !enabled {
		return l.closeFileLocked()
	}
	return l.ensureOutputLocked()
}

// Close closes the log file, if one is open.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeFileLocked()
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, args ...any) {
	l.logf(LevelDebug, format, args...)
}

// Infof logs an info-level message.
func (l *Logger) Infof(format string, args ...any) {
	l.logf(LevelInfo, format, args...)
}

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, args ...any) {
	l.logf(LevelWarn, format, args...)
}

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, args ...any) {
	l.logf(LevelError, format, args...)
}

// Enabled returns whether diagnostics logging is currently enabled.
func (l *Logger) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *Logger) logf(level Level, format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || level < l.level {
		return
	}
	if err := l.ensureOutputLocked(); err != nil {
		return
	}
	line := fmt.Sprintf(
		"%s [%s] %s\n",
		l.now().UTC().Format(time.RFC3339),
		level,
		fmt.Sprintf(format, args...),
	)
	_, _ = io.WriteString(l.out, line)
}

func (l *Logger) ensureOutputLocked() error {
	if l.out != nil {
		return nil
	}
	if l.path == "" {
		l.out = os.Stderr
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	l.file = file
	l.out = file
	return nil
}

func (l *Logger) closeFileLocked() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.out = nil
	return err
}
