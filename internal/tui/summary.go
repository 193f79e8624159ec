package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/kingrea/vimcat/internal/runner"
)

// RenderSummary describes how a run ended. total is the number of steps the
// run was asked to execute; runErr is the error returned alongside result.
func RenderSummary(result runner.Result, total int, runErr error) string {
	ran := len(result.Completed) + len(result.Failures)
	if runErr != nil {
		return warnMsg("Stopped after %d of %d steps: %v", ran, total, runErr)
	}

	var sb strings.Builder
	switch result.Outcome() {
	case runner.OutcomeCompleted:
		sb.WriteString(successMsg("All %d steps completed", total))
	case runner.OutcomeAborted:
		f := result.Failures[len(result.Failures)-1]
		sb.WriteString(errorMsg("Aborted at step %d (%s): %v", f.Index, f.Step, f.Err))
		sb.WriteString("\n  ")
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("%d completed · %d not run", len(result.Completed), total-ran)))
	case runner.OutcomeCompletedWithFailures:
		sb.WriteString(warnMsg("Completed with %d failed of %d steps", len(result.Failures), total))
		for _, f := range result.Failures {
			sb.WriteString("\n  ")
			sb.WriteString(errorStyle.Render("✗"))
			sb.WriteString(fmt.Sprintf(" %s: %v", f.Step, f.Err))
		}
	}
	return sb.String()
}

// PlainObserver prints one line per step event, for terminals that cannot
// host the interactive view.
type PlainObserver struct {
	mu    sync.Mutex
	w     io.Writer
	total int
}

// NewPlainObserver writes step events for a run of total steps to w.
func NewPlainObserver(w io.Writer, total int) *PlainObserver {
	return &PlainObserver{w: w, total: total}
}

func (p *PlainObserver) StepStarted(index int, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, infoMsg("[%d/%d] %s", index, p.total, name))
}

func (p *PlainObserver) StepFinished(index int, name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		fmt.Fprintln(p.w, "  "+errorMsg("%s: %v", name, err))
		return
	}
	fmt.Fprintln(p.w, "  "+successMsg("%s", name))
}
