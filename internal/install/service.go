// Package install assembles a provisioning run: it compiles the step catalog,
// runs it with the configured runner options and records the outcome.
package install

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kingrea/vimcat/internal/catalog"
	"github.com/kingrea/vimcat/internal/config"
	"github.com/kingrea/vimcat/internal/logbook"
	"github.com/kingrea/vimcat/internal/provision"
	"github.com/kingrea/vimcat/internal/report"
	"github.com/kingrea/vimcat/internal/runner"
	"github.com/kingrea/vimcat/internal/step"
)

// Options tune a single run on top of the loaded configuration.
type Options struct {
	ContinueOnError bool
	InterStepDelay  time.Duration
	Only            []string
	Skip            []string
}

// OptionsFromConfig seeds run options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ContinueOnError: cfg.ContinueOnError(),
		InterStepDelay:  cfg.InterStepDelay(),
		Skip:            cfg.Skip(),
	}
}

// Service runs the compiled registry and records each run.
type Service struct {
	registry  *step.Registry
	opts      Options
	observers []runner.Observer
	journal   *logbook.Logbook
	store     report.Store
	clock     func() time.Time
	sleep     runner.SleepFunc
}

// Option customizes the service instance.
type Option func(*Service)

// WithObserver adds an observer to every run.
func WithObserver(o runner.Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithLogbook journals every run to book.
func WithLogbook(book *logbook.Logbook) Option {
	return func(s *Service) {
		s.journal = book
	}
}

// WithStore persists a record of every run.
func WithStore(store report.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSleep replaces the runner's inter-step pause (primarily for tests).
func WithSleep(sleep runner.SleepFunc) Option {
	return func(s *Service) {
		s.sleep = sleep
	}
}

// New wires a service around an already compiled registry.
func New(reg *step.Registry, opts Options, extra ...Option) (*Service, error) {
	if reg.Len() == 0 {
		return nil, &step.ConfigError{Reason: "at least one step is required"}
	}
	s := &Service{registry: reg, opts: opts, clock: time.Now}
	for _, opt := range extra {
		opt(s)
	}
	return s, nil
}

// FromConfig loads the catalog named by cfg and compiles it for this machine.
func FromConfig(cfg *config.Config, opts Options, executor provision.Executor, extra ...Option) (*Service, error) {
	def, err := catalog.Load(cfg.CatalogPath())
	if err != nil {
		return nil, err
	}
	env := catalog.Env{
		Home:              cfg.HomeDir,
		ConfigsDir:        cfg.ConfigsDir(),
		ConfigsRepository: cfg.ConfigsRepository(),
		Executor:          executor,
	}
	reg, err := catalog.Compile(def, env, catalog.Filter{Only: opts.Only, Skip: opts.Skip})
	if err != nil {
		return nil, err
	}
	extra = append([]Option{
		WithStore(report.NewRepository(cfg.StateDir())),
	}, extra...)
	return New(reg, opts, extra...)
}

// JournalPath returns the default logbook location for cfg.
func JournalPath(cfg *config.Config) string {
	return filepath.Join(cfg.LogsDir(), "journey.log")
}

// Steps returns the step names of a run in execution order.
func (s *Service) Steps() []string {
	return s.registry.Names()
}

// Run executes one provisioning run against progress. Extra observers are
// notified in addition to the service-wide ones.
func (s *Service) Run(ctx context.Context, progress *runner.Progress, observers ...runner.Observer) (runner.Result, error) {
	opts := []runner.Option{
		runner.WithContinueOnError(s.opts.ContinueOnError),
		runner.WithInterStepDelay(s.opts.InterStepDelay),
		runner.WithSleep(s.sleep),
	}
	if s.journal != nil {
		opts = append(opts, runner.WithObserver(s.journal))
	}
	for _, o := range append(append([]runner.Observer(nil), s.observers...), observers...) {
		opts = append(opts, runner.WithObserver(o))
	}
	r, err := runner.New(progress, opts...)
	if err != nil {
		return runner.Result{}, err
	}

	runID := report.NewRunID()
	started := s.clock()
	s.journal.Info("run %s started · %d steps", runID, s.registry.Len())
	result, runErr := r.Run(ctx, s.registry)
	finished := s.clock()
	s.journalOutcome(runID, result, runErr)

	if s.store != nil {
		rec := report.FromResult(runID, s.registry.Names(), started, finished, result, runErr)
		if err := s.store.Save(rec); err != nil {
			if runErr == nil {
				runErr = fmt.Errorf("install: save run record: %w", err)
			}
		}
	}
	return result, runErr
}

func (s *Service) journalOutcome(runID string, result runner.Result, runErr error) {
	if runErr != nil {
		s.journal.Warn("run %s stopped: %v", runID, runErr)
		return
	}
	switch result.Outcome() {
	case runner.OutcomeCompleted:
		s.journal.Info("run %s completed · %d steps", runID, len(result.Completed))
	case runner.OutcomeAborted:
		s.journal.Error("run %s aborted: %v", runID, result.Err())
	case runner.OutcomeCompletedWithFailures:
		s.journal.Warn("run %s completed with %d failed steps", runID, len(result.Failures))
	}
}
