// internal/tui/app.go
//
// Interactive front end for a provisioning run. The runner executes on a
// command goroutine while the model polls its Progress on a short tick and
// renders the checklist, a progress bar and the tail of the logbook.

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/vimcat/internal/logbook"
	"github.com/kingrea/vimcat/internal/runner"
)

const (
	refreshInterval = 100 * time.Millisecond
	logTailLines    = 6
)

// Session starts provisioning runs for the TUI.
type Session interface {
	Steps() []string
	Run(ctx context.Context, progress *runner.Progress, observers ...runner.Observer) (runner.Result, error)
}

type appState int

const (
	stateReady    appState = iota // waiting for the install key
	stateRunning                  // runner goroutine active
	stateFinished                 // result available
)

type refreshMsg time.Time

type runFinishedMsg struct {
	result runner.Result
	err    error
}

// AppOption customizes App construction.
type AppOption func(*App)

// WithLogbook shows the tail of book below the checklist. The session is
// expected to write to book; the App only reads it.
func WithLogbook(book *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = book
	}
}

// WithAutoStart begins the run as soon as the program starts.
func WithAutoStart() AppOption {
	return func(a *App) {
		a.autoStart = true
	}
}

// App is the bubbletea model for an install session.
type App struct {
	session   Session
	logbook   *logbook.Logbook
	autoStart bool

	state    appState
	steps    []string
	progress *runner.Progress
	tracker  *stepTracker
	snapshot runner.ProgressSnapshot
	statuses []stepStatus
	result   runner.Result
	err      error

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	spinner spinner.Model
	bar     progress.Model
	width   int
	height  int
}

// NewApp creates the model for session.
func NewApp(session Session, opts ...AppOption) *App {
	steps := session.Steps()
	app := &App{
		session:  session,
		steps:    steps,
		statuses: make([]stepStatus, len(steps)),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(accentStyle),
		),
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(48)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	if a.autoStart {
		return a.startRun()
	}
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.bar.Width = min(48, max(10, msg.Width-12))
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			a.stop()
			return a, tea.Quit
		case "i":
			if a.state != stateRunning {
				return a, a.startRun()
			}
		}
		return a, nil

	case refreshMsg:
		if a.state != stateRunning {
			return a, nil
		}
		a.refresh()
		return a, a.scheduleRefresh()

	case runFinishedMsg:
		a.state = stateFinished
		a.result = msg.result
		a.err = msg.err
		a.refresh()
		return a, nil

	case spinner.TickMsg:
		if a.state != stateRunning {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}
	return a, nil
}

// Wait blocks until the active run, if any, has returned. The step in flight
// when the user quits still runs to completion.
func (a *App) Wait() {
	if a.done != nil {
		<-a.done
	}
}

// Finished reports whether a run has completed since the program started.
func (a *App) Finished() bool {
	return a.state == stateFinished
}

// Result returns the outcome of the last finished run.
func (a *App) Result() runner.Result {
	return a.result
}

// Err returns the error the last run stopped with, if any.
func (a *App) Err() error {
	return a.err
}

func (a *App) startRun() tea.Cmd {
	a.beginRun()
	return tea.Batch(a.execute, a.scheduleRefresh(), a.spinner.Tick)
}

// beginRun resets per-run state. Every run gets a fresh Progress.
func (a *App) beginRun() {
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.done = make(chan struct{})
	a.progress = runner.NewProgress()
	a.tracker = newStepTracker()
	a.snapshot = runner.ProgressSnapshot{}
	a.statuses = make([]stepStatus, len(a.steps))
	a.result = runner.Result{}
	a.err = nil
	a.state = stateRunning
}

// execute runs the session on the command goroutine.
func (a *App) execute() tea.Msg {
	defer close(a.done)
	result, err := a.session.Run(a.ctx, a.progress, a.tracker)
	return runFinishedMsg{result: result, err: err}
}

func (a *App) stop() {
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *App) scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (a *App) refresh() {
	if a.progress == nil {
		return
	}
	a.snapshot = a.progress.Snapshot()
	a.statuses = a.tracker.statuses(len(a.steps), a.state == stateRunning)
}

func (a *App) outcomeLabel() string {
	return string(runner.OutcomeOf(a.result, a.err))
}

// View renders the current state to a string.
func (a *App) View() string {
	sections := []string{headerStyle.Render("⬡ VIMCAT"), a.renderStatusLine(), "", renderChecklist(a.steps, a.statuses, a.spinner.View())}
	if len(a.steps) > 0 && a.state != stateReady {
		percent := float64(countFinished(a.statuses)) / float64(len(a.steps))
		sections = append(sections, "", "  "+a.bar.ViewAs(percent))
	}
	if a.state == stateFinished {
		sections = append(sections, "", RenderSummary(a.result, len(a.steps), a.err))
	}
	if panel := a.renderLogPanel(); panel != "" {
		sections = append(sections, "", panel)
	}
	sections = append(sections, "", a.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (a *App) renderStatusLine() string {
	switch a.state {
	case stateRunning:
		if a.snapshot.Index == 0 {
			return mutedStyle.Render("Starting…")
		}
		return fmt.Sprintf("Step %d of %d · %s", a.snapshot.Index, len(a.steps), accentStyle.Render(a.snapshot.Current))
	case stateFinished:
		return mutedStyle.Render(fmt.Sprintf("Run finished · %s", a.outcomeLabel()))
	default:
		return mutedStyle.Render(fmt.Sprintf("%d steps ready to install", len(a.steps)))
	}
}

func (a *App) renderFooter() string {
	hint := "i install · q quit"
	switch a.state {
	case stateRunning:
		hint = "q quit after the current step"
	case stateFinished:
		hint = "i run again · q quit"
	}
	return mutedStyle.Render(hint)
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(logTailLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := accentStyle.Bold(true).Render(fmt.Sprintf("LOG · %s (%d entries)", fileName, total))
	body := mutedStyle.Render(strings.Join(lines, "\n"))
	return boxStyle.Render(head + "\n" + body)
}
