// Package runner executes a step registry strictly in order, recording
// progress before each step starts and collecting a uniform result.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/kingrea/vimcat/internal/step"
)

// DefaultInterStepDelay is the pause between consecutive steps.
const DefaultInterStepDelay = 1000 * time.Millisecond

// Observer receives lifecycle callbacks for each step. Callbacks run on the
// runner goroutine and should return quickly.
type Observer interface {
	StepStarted(index int, name string)
	StepFinished(index int, name string, err error)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Runner executes steps one at a time.
type Runner struct {
	progress        *Progress
	continueOnError bool
	delay           time.Duration
	observers       []Observer
	sleep           SleepFunc
}

// Option customizes the runner instance.
type Option func(*Runner)

// WithContinueOnError keeps running after a failed step instead of aborting.
func WithContinueOnError(enabled bool) Option {
	return func(r *Runner) {
		r.continueOnError = enabled
	}
}

// WithInterStepDelay overrides the pause between steps. Zero disables it.
func WithInterStepDelay(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.delay = d
		}
	}
}

// WithObserver registers an observer. May be passed more than once.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// WithSleep injects the pause implementation (primarily for tests).
func WithSleep(sleep SleepFunc) Option {
	return func(r *Runner) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// New wires a runner to the progress tracker it will update.
func New(progress *Progress, opts ...Option) (*Runner, error) {
	if progress == nil {
		return nil, fmt.Errorf("runner: progress tracker is required")
	}
	r := &Runner{
		progress: progress,
		delay:    DefaultInterStepDelay,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Progress returns the tracker this runner writes to. It accumulates across
// calls to Run; readers that want per-run counts need a new Runner and Progress.
func (r *Runner) Progress() *Progress {
	return r.progress
}

// Run executes every step of reg in order. Step failures are reported in the
// Result; the returned error is non-nil only for an invalid registry or when
// ctx is canceled between steps, in which case the partial result is returned.
// A step that has started always runs to completion.
func (r *Runner) Run(ctx context.Context, reg *step.Registry) (Result, error) {
	if reg.Len() == 0 {
		return Result{}, &step.ConfigError{Reason: "at least one step is required"}
	}
	var result Result
	opCtx := context.WithoutCancel(ctx)
	for i, s := range reg.Steps() {
		if i > 0 {
			if err := r.pause(ctx); err != nil {
				return result, err
			}
		} else if err := ctx.Err(); err != nil {
			return result, err
		}

		r.progress.begin(s.Name)
		index := i + 1
		r.notifyStarted(index, s.Name)
		err := s.Invoke(opCtx)
		r.notifyFinished(index, s.Name, err)

		if err == nil {
			result.Completed = append(result.Completed, s.Name)
			continue
		}
		result.Failures = append(result.Failures, step.Failure{Step: s.Name, Index: index, Err: err})
		if !r.continueOnError {
			result.Aborted = true
			return result, nil
		}
	}
	return result, nil
}

func (r *Runner) pause(ctx context.Context) error {
	if r.delay <= 0 {
		return ctx.Err()
	}
	return r.sleep(ctx, r.delay)
}

func (r *Runner) notifyStarted(index int, name string) {
	for _, o := range r.observers {
		o.StepStarted(index, name)
	}
}

func (r *Runner) notifyFinished(index int, name string, err error) {
	for _, o := range r.observers {
		o.StepFinished(index, name, err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
