package runner

import "sync"

// Progress records which steps of a run have begun. It is shared between the
// runner, which is its only writer, and any number of readers such as the TUI.
type Progress struct {
	mu      sync.RWMutex
	index   int
	history []string
}

// ProgressSnapshot is a consistent copy of Progress taken under one lock.
type ProgressSnapshot struct {
	Index   int
	Current string
	History []string
}

// NewProgress returns an empty tracker for one provisioning run. A tracker
// shared by several runs keeps counting; step positions reported in Failure
// and to observers do not depend on it.
func NewProgress() *Progress {
	return &Progress{}
}

// begin records name as the step in progress. index and history move together.
func (p *Progress) begin(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history, name)
	p.index++
}

// Index returns how many steps have started.
func (p *Progress) Index() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.index
}

// CurrentName returns the most recently started step, or false before the
// first step begins.
func (p *Progress) CurrentName() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.history) == 0 {
		return "", false
	}
	return p.history[len(p.history)-1], true
}

// History returns the started step names in execution order.
func (p *Progress) History() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneStrings(p.history)
}

// Snapshot returns index, current name and history read together.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap := ProgressSnapshot{
		Index:   p.index,
		History: cloneStrings(p.history),
	}
	if len(p.history) > 0 {
		snap.Current = p.history[len(p.history)-1]
	}
	return snap
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
