package tasks

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"dyphal/internal/logging"
	"dyphal/internal/metrics"
)

var log = logging.Component("tasks")

// ErrCancelled is the error of a task that was cancelled before it ran. A
// task function may also return it to report that it gave up cooperatively.
var ErrCancelled = errors.New("task cancelled")

// Outcome is how a task finished.
type Outcome int

const (
	Succeeded Outcome = iota
	Failed
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome of a finished task. Err is nil for Succeeded and
// ErrCancelled for Cancelled.
type Result struct {
	Outcome Outcome
	Err     error
}

// PanicError is the error of a task whose function panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Func is the body of a task.
type Func func(ctx context.Context) error

const (
	statePending int32 = iota
	stateRunning
	stateFinished
)

// Task is one unit of background work.
type Task struct {
	Kind  string // metrics label
	Label string // what the task works on, for error messages

	fn      Func
	after   *Task
	barrier bool
	batch   uint64

	state    atomic.Int32
	done     chan struct{}
	result   Result
	onFinish func(*Task)
}

func newTask(kind, label string, after *Task, fn Func) *Task {
	return &Task{
		Kind:  kind,
		Label: label,
		fn:    fn,
		after: after,
		done:  make(chan struct{}),
	}
}

// Done is closed once the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task has finished and returns its result.
func (t *Task) Wait() Result {
	<-t.done
	return t.result
}

// Started reports whether a worker has begun the task.
func (t *Task) Started() bool {
	return t.state.Load() != statePending
}

// Cancel stops a task that has not started yet. It reports whether the task
// was cancelled; a running or finished task is left alone, as is a barrier.
func (t *Task) Cancel() bool {
	if t.barrier {
		return false
	}
	if !t.state.CompareAndSwap(statePending, stateFinished) {
		return false
	}
	t.finish(Result{Outcome: Cancelled, Err: ErrCancelled})
	return true
}

// run executes the task on the calling worker.
func (t *Task) run(ctx context.Context) {
	if !t.state.CompareAndSwap(statePending, stateRunning) {
		return
	}
	if t.after != nil {
		t.after.Wait()
	}

	start := time.Now()
	err := t.call(ctx)
	metrics.TaskDuration.WithLabelValues(t.Kind).Observe(time.Since(start).Seconds())

	var res Result
	switch {
	case err == nil:
		res = Result{Outcome: Succeeded}
	case errors.Is(err, ErrCancelled):
		res = Result{Outcome: Cancelled, Err: ErrCancelled}
	default:
		res = Result{Outcome: Failed, Err: err}
	}
	t.state.Store(stateFinished)
	t.finish(res)
}

func (t *Task) call(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			perr := &PanicError{Value: r, Stack: debug.Stack()}
			log.Error("%s task %q panicked: %v\n%s", t.Kind, t.Label, r, perr.Stack)
			err = perr
		}
	}()
	return t.fn(ctx)
}

func (t *Task) finish(res Result) {
	t.result = res
	metrics.TasksTotal.WithLabelValues(t.Kind, res.Outcome.String()).Inc()
	if res.Outcome == Failed {
		log.Debug("%s task %q failed: %v", t.Kind, t.Label, res.Err)
	}
	if t.onFinish != nil {
		t.onFinish(t)
	}
	close(t.done)
}
