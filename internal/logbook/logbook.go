// Package logbook keeps journey.log, the plain-text history of install runs
// on this machine. The TUI shows its tail and users read the rest with any
// pager.
package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type severity string

const (
	sevInfo  severity = "INFO"
	sevWarn  severity = "WARN"
	sevError severity = "ERROR"
)

// Logbook appends one timestamped line per entry. A nil *Logbook discards
// entries and reads as empty.
type Logbook struct {
	file string
	now  func() time.Time

	mu sync.Mutex
}

// New opens the journal at path, creating its directory.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Logbook{file: path, now: time.Now}, nil
}

func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.file
}

func (l *Logbook) Info(format string, args ...any)  { l.write(sevInfo, format, args...) }
func (l *Logbook) Warn(format string, args ...any)  { l.write(sevWarn, format, args...) }
func (l *Logbook) Error(format string, args ...any) { l.write(sevError, format, args...) }

// StepStarted and StepFinished let a Logbook observe a runner directly.
func (l *Logbook) StepStarted(index int, name string) {
	l.Info("step %d · %s started", index, name)
}

func (l *Logbook) StepFinished(index int, name string, err error) {
	if err != nil {
		l.Error("step %d · %s failed: %v", index, name, err)
		return
	}
	l.Info("step %d · %s done", index, name)
}

// Tail returns the last n entries, oldest first, and how many the journal
// holds in total.
func (l *Logbook) Tail(n int) ([]string, int) {
	if l == nil || n <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.file)
	if err != nil {
		return nil, 0
	}
	defer f.Close()

	ring := make([]string, n)
	total := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		ring[total%n] = sc.Text()
		total++
	}
	if total == 0 {
		return nil, 0
	}
	if total <= n {
		return ring[:total], total
	}
	start := total % n
	return append(ring[start:], ring[:start]...), total
}

// write drops the entry when the file cannot be opened; journaling never
// fails a run.
func (l *Logbook) write(sev severity, format string, args ...any) {
	if l == nil {
		return
	}
	entry := fmt.Sprintf("%s %-5s %s\n",
		l.now().UTC().Format(time.RFC3339), sev, oneLine(fmt.Sprintf(format, args...)))

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	_, _ = f.WriteString(entry)
	_ = f.Close()
}

// oneLine folds command output that spans lines into a single entry.
func oneLine(msg string) string {
	parts := strings.Split(strings.TrimSpace(msg), "\n")
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " | ")
}
