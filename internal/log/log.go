// Package log provides the debug log for jiro.
// Entries are appended to a file in the project's data directory and
// tagged with a per-invocation run id so `jiro logs` can group them.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level represents log severity.
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

// ParseLevel converts a level name (case-insensitive) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Category groups related log messages.
type Category string

const (
	CatAssets   Category = "assets"   // Tier lookups and customize copies
	CatConfig   Category = "config"   // Configuration loading/saving
	CatProject  Category = "project"  // Project discovery and mode switches
	CatDefaults Category = "defaults" // Bundled asset materialization
	CatCLI      Category = "cli"      // Command dispatch
)

// Logger writes leveled, categorized lines. A nil *Logger is a valid no-op logger.
type Logger struct {
	mu       sync.Mutex
	file     *os.File
	w        io.Writer
	runID    string
	minLevel Level
}

// Open creates a logger appending to the file at path.
// If the path is empty, returns a no-op logger.
// Creates parent directories if they don't exist.
func Open(path string, minLevel Level) (*Logger, error) {
	if path == "" {
		return Nop(), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := New(f, minLevel)
	l.file = f
	return l, nil
}

// New creates a logger writing to w.
func New(w io.Writer, minLevel Level) *Logger {
	return &Logger{
		w:        w,
		runID:    uuid.NewString()[:8],
		minLevel: minLevel,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{}
}

// RunID returns the id attached to every line written by this logger.
func (l *Logger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// SetMinLevel sets the minimum level written.
func (l *Logger) SetMinLevel(level Level) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.minLevel = level
	l.mu.Unlock()
}

// Debug logs at debug level.
func (l *Logger) Debug(cat Category, msg string, fields ...any) {
	l.log(LevelDebug, cat, msg, fields...)
}

// Info logs at info level.
func (l *Logger) Info(cat Category, msg string, fields ...any) {
	l.log(LevelInfo, cat, msg, fields...)
}

// Warn logs at warning level.
func (l *Logger) Warn(cat Category, msg string, fields ...any) {
	l.log(LevelWarn, cat, msg, fields...)
}

// Error logs at error level with the error value appended.
func (l *Logger) Error(cat Category, msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	l.log(LevelError, cat, msg, fields...)
}

func (l *Logger) log(level Level, cat Category, msg string, fields ...any) {
	if l == nil || l.w == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.minLevel {
		return
	}

	// Format: 2026-10-17T10:45:00.000 [INFO] [assets] message run=1a2b3c4d key=value
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%s] %s run=%s", time.Now().Format("2006-01-02T15:04:05.000"), level, cat, msg, l.runID)
	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
	}
	if len(fields)%2 != 0 {
		fmt.Fprintf(&b, " %v=", fields[len(fields)-1])
	}
	b.WriteByte('\n')

	_, _ = io.WriteString(l.w, b.String())
	if l.file != nil {
		_ = l.file.Sync()
	}
}

// Close closes the log file.
// Safe to call on nil logger or logger without file.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}
