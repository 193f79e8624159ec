// Package step defines the provisioning unit executed by the runner: a named,
// fallible operation plus the ordered registry that holds a run's steps.
package step

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrOperationPanicked marks an operation that panicked instead of returning an error.
var ErrOperationPanicked = errors.New("step: operation panicked")

// Operation performs the side effects of a step. The runner passes a context
// that is never canceled while the operation is in flight.
type Operation func(ctx context.Context) error

// Options carries per-step execution settings.
type Options struct {
	// Attempts is how many times the operation may run before the step fails.
	// Zero or one means a single attempt.
	Attempts int
	// Backoff is the constant pause between attempts.
	Backoff time.Duration
}

func (o Options) attemptsOrDefault() int {
	if o.Attempts <= 1 {
		return 1
	}
	return o.Attempts
}

// Step is one named provisioning action.
type Step struct {
	Name    string
	Run     Operation
	Options Options
}

// New builds a single-attempt step.
func New(name string, run Operation) Step {
	return Step{Name: name, Run: run}
}

// WithOptions returns a copy of the step using opts.
func (s Step) WithOptions(opts Options) Step {
	s.Options = opts
	return s
}

// Invoke runs the operation, retrying with a constant backoff when the step
// was configured with more than one attempt.
func (s Step) Invoke(ctx context.Context) error {
	attempts := s.Options.attemptsOrDefault()
	if attempts == 1 {
		return s.call(ctx)
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.Options.Backoff), uint64(attempts-1)),
		ctx,
	)
	return backoff.Retry(func() error {
		err := s.call(ctx)
		if errors.Is(err, ErrOperationPanicked) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func (s Step) call(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrOperationPanicked, r)
		}
	}()
	return s.Run(ctx)
}

// Failure is a step error annotated with the failing step's name and position.
type Failure struct {
	Step  string
	Index int
	Err   error
}

func (f Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("step %s: failed", f.Step)
	}
	return fmt.Sprintf("step %s: %v", f.Step, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// ConfigError reports a malformed step list detected before anything runs.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "step registry: " + e.Reason
}
