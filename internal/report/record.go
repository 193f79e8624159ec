// Package report persists a summary of the most recent provisioning run so
// `vimcat status` can show it after the process exits.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/vimcat/internal/runner"
)

// FailureRecord is a persisted step failure.
type FailureRecord struct {
	Step  string `json:"step"`
	Index int    `json:"index"`
	Error string `json:"error"`
}

// Record captures the persisted snapshot of a run.
type Record struct {
	RunID      string          `json:"run_id"`
	Outcome    runner.Outcome  `json:"outcome"`
	Steps      []string        `json:"steps"`
	Completed  []string        `json:"completed,omitempty"`
	Failures   []FailureRecord `json:"failures,omitempty"`
	Aborted    bool            `json:"aborted"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// FromResult converts a runner result into a record. steps lists every step
// the run was asked to execute, in order; runErr is the error Run returned.
func FromResult(runID string, steps []string, started, finished time.Time, result runner.Result, runErr error) Record {
	rec := Record{
		RunID:      runID,
		Outcome:    runner.OutcomeOf(result, runErr),
		Steps:      cloneStrings(steps),
		Completed:  cloneStrings(result.Completed),
		Aborted:    result.Aborted,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	for _, f := range result.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		rec.Failures = append(rec.Failures, FailureRecord{Step: f.Step, Index: f.Index, Error: msg})
	}
	return rec
}

// Duration reports how long the run took.
func (r Record) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Skipped returns steps that never started because the run aborted or was
// interrupted.
func (r Record) Skipped() []string {
	ran := len(r.Completed) + len(r.Failures)
	if ran >= len(r.Steps) {
		return nil
	}
	return cloneStrings(r.Steps[ran:])
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
