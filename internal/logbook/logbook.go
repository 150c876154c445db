// Package logbook persists operational warnings to a simple append-only text
// file so agents can inspect what the board skipped or flagged after the
// fact. All methods are safe on a nil receiver: components that run without
// a logbook simply log nothing.
package logbook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logbook appends timestamped lines to a log file.
type Logbook struct {
	path string
	mu   sync.Mutex
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure log dir: %w", err)
	}
	return &Logbook{path: path}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry to the logbook. Logging is best-effort: a
// write failure never propagates to the caller.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s %-5s %s\n",
		time.Now().UTC().Format(time.RFC3339),
		string(level),
		strings.TrimSpace(message),
	)
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	file.WriteString(line)
}

// Warnf formats and appends a WARN entry.
func (l *Logbook) Warnf(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Infof formats and appends an INFO entry.
func (l *Logbook) Infof(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Errorf formats and appends an ERROR entry.
func (l *Logbook) Errorf(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}
