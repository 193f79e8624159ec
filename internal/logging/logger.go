package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// FileName is the log file created inside the logs directory.
const FileName = "vimcat.log"

// Logger writes structured lines to logs/vimcat.log so users can inspect
// failures after the TUI has closed.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New creates (or reuses) the log file in logDir at the given level.
func New(logDir, level string) (*Logger, error) {
	parsed, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{Logger: newSlog(f, parsed), file: f}, nil
}

// NewWriter builds a logger on an arbitrary writer. Close is a no-op.
func NewWriter(w io.Writer, level string) (*Logger, error) {
	parsed, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: newSlog(w, parsed)}, nil
}

// Install makes l the process-wide slog default.
func (l *Logger) Install() {
	if l == nil || l.Logger == nil {
		return
	}
	slog.SetDefault(l.Logger)
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// StepStarted logs the start of a step.
func (l *Logger) StepStarted(index int, name string) {
	l.Debug("step started", "index", index, "step", name)
}

// StepFinished logs the outcome of a step.
func (l *Logger) StepFinished(index int, name string, err error) {
	if err != nil {
		l.Error("step failed", "index", index, "step", name, "error", err)
		return
	}
	l.Info("step completed", "index", index, "step", name)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", LevelInfo:
		return slog.LevelInfo, nil
	case LevelDebug:
		return slog.LevelDebug, nil
	case LevelWarn:
		return slog.LevelWarn, nil
	case LevelError:
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", level)
	}
}

func newSlog(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
