package runner

import (
	"errors"

	"github.com/kingrea/vimcat/internal/step"
)

// Outcome classifies a finished run.
type Outcome string

const (
	// OutcomeCompleted means every step succeeded.
	OutcomeCompleted Outcome = "completed"
	// OutcomeAborted means a step failed and the run stopped there.
	OutcomeAborted Outcome = "aborted"
	// OutcomeCompletedWithFailures means every step ran but some failed.
	OutcomeCompletedWithFailures Outcome = "completed-with-failures"
	// OutcomeInterrupted means Run returned an error, typically cancellation
	// between steps, before every step had a chance to run.
	OutcomeInterrupted Outcome = "interrupted"
)

// Result summarizes one run.
type Result struct {
	Completed []string
	Failures  []step.Failure
	Aborted   bool
}

// Outcome reports which of the three run classes the result belongs to.
func (r Result) Outcome() Outcome {
	switch {
	case r.Aborted:
		return OutcomeAborted
	case len(r.Failures) > 0:
		return OutcomeCompletedWithFailures
	default:
		return OutcomeCompleted
	}
}

// OutcomeOf classifies result together with the error Run returned with it.
// Result.Outcome alone cannot tell an interrupted run from a completed one.
func OutcomeOf(result Result, runErr error) Outcome {
	if runErr != nil && !result.Aborted {
		return OutcomeInterrupted
	}
	return result.Outcome()
}

// Err returns nil on full success, the aborting failure, or all recorded
// failures joined together.
func (r Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	if len(r.Failures) == 1 {
		return r.Failures[0]
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// FailedSteps returns the names of failed steps in execution order.
func (r Result) FailedSteps() []string {
	if len(r.Failures) == 0 {
		return nil
	}
	names := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		names[i] = f.Step
	}
	return names
}
