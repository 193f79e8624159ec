package tui

import (
	"strings"
	"sync"
)

type stepStatus int

const (
	stepPending stepStatus = iota
	stepRunning
	stepDone
	stepFailed
)

// stepTracker records finished steps reported by the runner. It is written
// on the runner goroutine and read from the UI goroutine.
type stepTracker struct {
	mu       sync.Mutex
	current  int
	finished map[int]error
}

func newStepTracker() *stepTracker {
	return &stepTracker{finished: map[int]error{}}
}

func (t *stepTracker) StepStarted(index int, _ string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = index
}

func (t *stepTracker) StepFinished(index int, _ string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished[index] = err
}

// statuses maps every step to its display status. running marks whether
// the most recently started step is still in flight.
func (t *stepTracker) statuses(total int, running bool) []stepStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]stepStatus, total)
	for i := range out {
		index := i + 1
		if err, ok := t.finished[index]; ok {
			if err != nil {
				out[i] = stepFailed
			} else {
				out[i] = stepDone
			}
			continue
		}
		if running && index == t.current {
			out[i] = stepRunning
		}
	}
	return out
}

func renderChecklist(names []string, statuses []stepStatus, spin string) string {
	lines := make([]string, 0, len(names))
	for i, name := range names {
		status := stepPending
		if i < len(statuses) {
			status = statuses[i]
		}
		var icon, label string
		switch status {
		case stepRunning:
			icon, label = spin, name
		case stepDone:
			icon, label = successStyle.Render("✓"), name
		case stepFailed:
			icon, label = errorStyle.Render("✗"), errorStyle.Render(name)
		default:
			icon, label = mutedStyle.Render("●"), mutedStyle.Render(name)
		}
		lines = append(lines, "  "+icon+" "+label)
	}
	return strings.Join(lines, "\n")
}

func countFinished(statuses []stepStatus) int {
	n := 0
	for _, s := range statuses {
		if s == stepDone || s == stepFailed {
			n++
		}
	}
	return n
}
