package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/vimcat/internal/step"
)

type callCounter struct {
	mu    sync.Mutex
	calls map[string]int
	order []string
}

func newCallCounter() *callCounter {
	return &callCounter{calls: map[string]int{}}
}

func (c *callCounter) op(name string, err error) step.Step {
	return step.New(name, func(context.Context) error {
		c.mu.Lock()
		c.calls[name]++
		c.order = append(c.order, name)
		c.mu.Unlock()
		return err
	})
}

func (c *callCounter) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

type sleepRecorder struct {
	pauses []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.pauses = append(s.pauses, d)
	return ctx.Err()
}

type observerRecorder struct {
	events  []string
	started []int
}

func (o *observerRecorder) StepStarted(index int, name string) {
	o.events = append(o.events, "start:"+name)
	o.started = append(o.started, index)
}

func (o *observerRecorder) StepFinished(index int, name string, err error) {
	if err != nil {
		o.events = append(o.events, "fail:"+name)
		return
	}
	o.events = append(o.events, "done:"+name)
}

func newTestRunner(t *testing.T, opts ...Option) (*Runner, *Progress, *sleepRecorder) {
	t.Helper()
	progress := NewProgress()
	sleeper := &sleepRecorder{}
	opts = append([]Option{WithSleep(sleeper.sleep)}, opts...)
	r, err := New(progress, opts...)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return r, progress, sleeper
}

func TestRunAllStepsSucceed(t *testing.T) {
	counter := newCallCounter()
	reg := step.MustRegistry(counter.op("a", nil), counter.op("b", nil), counter.op("c", nil))
	r, progress, _ := newTestRunner(t)

	result, err := r.Run(context.Background(), reg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{"a", "b", "c"}
	if diff := cmp.Diff(want, result.Completed); diff != "" {
		t.Fatalf("completed mismatch (-want +got):\n%s", diff)
	}
	if len(result.Failures) != 0 || result.Aborted {
		t.Fatalf("unexpected failures: %+v aborted=%v", result.Failures, result.Aborted)
	}
	if diff := cmp.Diff(want, progress.History()); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	if progress.Index() != 3 {
		t.Fatalf("index = %d, want 3", progress.Index())
	}
	if result.Outcome() != OutcomeCompleted || result.Err() != nil {
		t.Fatalf("expected completed outcome, got %s (%v)", result.Outcome(), result.Err())
	}
}

func TestRunAbortsOnFirstFailure(t *testing.T) {
	counter := newCallCounter()
	boom := errors.New("boom")
	reg := step.MustRegistry(counter.op("a", nil), counter.op("b", boom), counter.op("c", nil))
	r, progress, _ := newTestRunner(t)

	result, err := r.Run(context.Background(), reg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]string{"a"}, result.Completed); diff != "" {
		t.Fatalf("completed mismatch (-want +got):\n%s", diff)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("failures = %+v, want exactly one", result.Failures)
	}
	failure := result.Failures[0]
	if failure.Step != "b" || failure.Index != 2 || !errors.Is(failure, boom) {
		t.Fatalf("unexpected failure %+v", failure)
	}
	if !result.Aborted || result.Outcome() != OutcomeAborted {
		t.Fatalf("expected aborted run, got %s", result.Outcome())
	}
	if counter.count("c") != 0 {
		t.Fatalf("step c must never run after abort")
	}
	if diff := cmp.Diff([]string{"a", "b"}, progress.History()); diff != "" {
		t.Fatalf("no progress may be recorded after abort (-want +got):\n%s", diff)
	}
	if !errors.Is(result.Err(), boom) {
		t.Fatalf("result error should wrap the cause, got %v", result.Err())
	}
}

func TestRunContinueOnErrorRecordsEveryFailure(t *testing.T) {
	counter := newCallCounter()
	reg := step.MustRegistry(
		counter.op("a", errors.New("first")),
		counter.op("b", nil),
		counter.op("c", errors.New("second")),
		counter.op("d", nil),
	)
	r, _, _ := newTestRunner(t, WithContinueOnError(true))

	result, err := r.Run(context.Background(), reg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, counter.order); diff != "" {
		t.Fatalf("execution order mismatch (-want +got):\n%s", diff)
	}
	for _, name := range []string{"a", "b", "c", "d"} {
		if counter.count(name) != 1 {
			t.Fatalf("step %s ran %d times, want 1", name, counter.count(name))
		}
	}
	if diff := cmp.Diff([]string{"a", "c"}, result.FailedSteps()); diff != "" {
		t.Fatalf("failed steps mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b", "d"}, result.Completed); diff != "" {
		t.Fatalf("completed mismatch (-want +got):\n%s", diff)
	}
	if result.Aborted || result.Outcome() != OutcomeCompletedWithFailures {
		t.Fatalf("expected completed-with-failures, got %s", result.Outcome())
	}
}

func TestRunConcreteScenarioFailFast(t *testing.T) {
	counter := newCallCounter()
	reg := step.MustRegistry(counter.op("a", nil), counter.op("b", errors.New("boom")), counter.op("c", nil))
	r, _, _ := newTestRunner(t)

	result, err := r.Run(context.Background(), reg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]string{"a"}, result.Completed); diff != "" {
		t.Fatalf("completed mismatch (-want +got):\n%s", diff)
	}
	if len(result.Failures) != 1 || result.Failures[0].Step != "b" || result.Failures[0].Err.Error() != "boom" {
		t.Fatalf("unexpected failures %+v", result.Failures)
	}
	if !result.Aborted {
		t.Fatalf("expected aborted")
	}
	if counter.count("c") != 0 {
		t.Fatalf("step c invoked")
	}
}

func TestRunConcreteScenarioContinueOnError(t *testing.T) {
	counter := newCallCounter()
	reg := step.MustRegistry(counter.op("a", nil), counter.op("b", errors.New("boom")), counter.op("c", nil))
	r, _, _ := newTestRunner(t, WithContinueOnError(true))

	result, err := r.Run(context.Background(), reg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "c"}, result.Completed); diff != "" {
		t.Fatalf("completed mismatch (-want +got):\n%s", diff)
	}
	if len(result.Failures) != 1 || result.Failures[0].Step != "b" || result.Failures[0].Err.Error() != "boom" {
		t.Fatalf("unexpected failures %+v", result.Failures)
	}
	if result.Aborted {
		t.Fatalf("continue-on-error run must not abort")
	}
	for _, name := range []string{"a", "b", "c"} {
		if counter.count(name) != 1 {
			t.Fatalf("step %s ran %d times", name, counter.count(name))
		}
	}
}

func TestRunSingleFailingStep(t *testing.T) {
	cause := errors.New("brew missing")
	reg := step.MustRegistry(step.New("install git", func(context.Context) error { return cause }))
	r, _, sleeper := newTestRunner(t)

	result, err := r.Run(context.Background(), reg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Aborted || len(result.Completed) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Failures) != 1 || result.Failures[0].Step != "install git" || !errors.Is(result.Failures[0], cause) {
		t.Fatalf("unexpected failures %+v", result.Failures)
	}
	if len(sleeper.pauses) != 0 {
		t.Fatalf("no pause expected for a single step, got %v", sleeper.pauses)
	}
}

func TestRunRecordsProgressBeforeOperationReturns(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	reg := step.MustRegistry(
		step.New("a", func(context.Context) error { return nil }),
		step.New("b", func(context.Context) error {
			close(entered)
			<-release
			return nil
		}),
	)
	r, progress, _ := newTestRunner(t)

	done := make(chan Result, 1)
	go func() {
		result, _ := r.Run(context.Background(), reg)
		done <- result
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatalf("step b never started")
	}
	snap := progress.Snapshot()
	if snap.Index != 2 || snap.Current != "b" {
		t.Fatalf("expected step b in progress, got %+v", snap)
	}
	if name, ok := progress.CurrentName(); !ok || name != "b" {
		t.Fatalf("current name = %q, %v", name, ok)
	}
	close(release)

	select {
	case result := <-done:
		if diff := cmp.Diff([]string{"a", "b"}, result.Completed); diff != "" {
			t.Fatalf("completed mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not finish")
	}
}

func TestProgressSnapshotIsNeverTorn(t *testing.T) {
	steps := make([]step.Step, 0, 50)
	for i := 0; i < 50; i++ {
		steps = append(steps, step.New("step", func(context.Context) error { return nil }))
	}
	reg := step.MustRegistry(steps...)
	r, progress, _ := newTestRunner(t, WithInterStepDelay(0))

	stop := make(chan struct{})
	torn := make(chan ProgressSnapshot, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := progress.Snapshot()
			if snap.Index != len(snap.History) {
				select {
				case torn <- snap:
				default:
				}
				return
			}
		}
	}()
	if _, err := r.Run(context.Background(), reg); err != nil {
		t.Fatalf("run: %v", err)
	}
	close(stop)
	wg.Wait()
	select {
	case snap := <-torn:
		t.Fatalf("observed torn snapshot %+v", snap)
	default:
	}
}

func TestProgressBeforeFirstStep(t *testing.T) {
	progress := NewProgress()
	if progress.Index() != 0 {
		t.Fatalf("index = %d, want 0", progress.Index())
	}
	if name, ok := progress.CurrentName(); ok || name != "" {
		t.Fatalf("expected no current step, got %q", name)
	}
	if history := progress.History(); len(history) != 0 {
		t.Fatalf("history = %v, want empty", history)
	}
}

func TestProgressHistoryIsACopy(t *testing.T) {
	progress := NewProgress()
	progress.begin("a")
	history := progress.History()
	history[0] = "mutated"
	if got := progress.History()[0]; got != "a" {
		t.Fatalf("history leaked internal state: %q", got)
	}
}

func TestRunPausesBetweenConsecutiveSteps(t *testing.T) {
	counter := newCallCounter()
	reg := step.MustRegistry(counter.op("a", nil), counter.op("b", errors.New("boom")), counter.op("c", nil))
	r, _, sleeper := newTestRunner(t, WithContinueOnError(true), WithInterStepDelay(250*time.Millisecond))

	if _, err := r.Run(context.Background(), reg); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}
	if diff := cmp.Diff(want, sleeper.pauses); diff != "" {
		t.Fatalf("pauses mismatch (-want +got):\n%s", diff)
	}
}

func TestRunDefaultDelayIsOneSecond(t *testing.T) {
	counter := newCallCounter()
	reg := step.MustRegistry(counter.op("a", nil), counter.op("b", nil))
	r, _, sleeper := newTestRunner(t)

	if _, err := r.Run(context.Background(), reg); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sleeper.pauses) != 1 || sleeper.pauses[0] != time.Second {
		t.Fatalf("pauses = %v, want [1s]", sleeper.pauses)
	}
}

func TestRunZeroDelaySkipsSleep(t *testing.T) {
	counter := newCallCounter()
	reg := step.MustRegistry(counter.op("a", nil), counter.op("b", nil))
	r, _, sleeper := newTestRunner(t, WithInterStepDelay(0))

	if _, err := r.Run(context.Background(), reg); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sleeper.pauses) != 0 {
		t.Fatalf("pauses = %v, want none", sleeper.pauses)
	}
}

func TestRunStopsBetweenStepsWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var opCtxErr error
	reg := step.MustRegistry(
		step.New("a", func(opCtx context.Context) error {
			cancel()
			opCtxErr = opCtx.Err()
			return nil
		}),
		step.New("b", func(context.Context) error { return nil }),
	)
	r, progress, _ := newTestRunner(t)

	result, err := r.Run(ctx, reg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if opCtxErr != nil {
		t.Fatalf("a started step must not observe cancellation, got %v", opCtxErr)
	}
	if diff := cmp.Diff([]string{"a"}, result.Completed); diff != "" {
		t.Fatalf("completed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, progress.History()); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestRunNotifiesObservers(t *testing.T) {
	counter := newCallCounter()
	reg := step.MustRegistry(counter.op("a", nil), counter.op("b", errors.New("boom")))
	obs := &observerRecorder{}
	r, _, _ := newTestRunner(t, WithObserver(obs))

	if _, err := r.Run(context.Background(), reg); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{"start:a", "done:a", "start:b", "fail:b"}
	if diff := cmp.Diff(want, obs.events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestRunRejectsEmptyRegistry(t *testing.T) {
	r, _, _ := newTestRunner(t)
	_, err := r.Run(context.Background(), nil)
	var cfgErr *step.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestNewRequiresProgress(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil progress")
	}
}

func TestRunReportsRegistryPositionsWhenProgressIsReused(t *testing.T) {
	counter := newCallCounter()
	boom := errors.New("boom")
	reg := step.MustRegistry(counter.op("a", nil), counter.op("b", boom), counter.op("c", nil))
	obs := &observerRecorder{}
	r, progress, _ := newTestRunner(t, WithObserver(obs), WithContinueOnError(true))

	if _, err := r.Run(context.Background(), reg); err != nil {
		t.Fatalf("first run: %v", err)
	}
	obs.started = nil
	result, err := r.Run(context.Background(), reg)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if got := progress.Index(); got != 6 {
		t.Fatalf("shared progress index = %d, want 6", got)
	}
	if len(result.Failures) != 1 || result.Failures[0].Index != 2 {
		t.Fatalf("failure should sit at position 2, got %+v", result.Failures)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, obs.started); diff != "" {
		t.Fatalf("observer indices mismatch (-want +got):\n%s", diff)
	}
}

func TestOutcomeOfInterruptedRun(t *testing.T) {
	cases := []struct {
		name   string
		result Result
		err    error
		want   Outcome
	}{
		{"canceled between steps", Result{Completed: []string{"a"}}, context.Canceled, OutcomeInterrupted},
		{"completed", Result{Completed: []string{"a", "b"}}, nil, OutcomeCompleted},
		{"aborted", Result{Failures: []step.Failure{{Step: "a", Index: 1, Err: errors.New("x")}}, Aborted: true}, nil, OutcomeAborted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := OutcomeOf(tc.result, tc.err); got != tc.want {
				t.Fatalf("OutcomeOf = %s, want %s", got, tc.want)
			}
		})
	}
}
