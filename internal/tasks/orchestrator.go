package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"dyphal/internal/metrics"
)

// Observer is told when the orchestrator becomes busy or idle and when the
// progress count changes. Calls come from worker goroutines and from the
// goroutine that called Begin or Cancel, never while a lock is held.
type Observer interface {
	BusyChanged(busy bool)
	ProgressChanged(done, total int)
}

type nopObserver struct{}

func (nopObserver) BusyChanged(bool)         {}
func (nopObserver) ProgressChanged(int, int) {}

// TaskResult is the result of one task as handed to a barrier.
type TaskResult struct {
	Kind  string
	Label string
	Result
}

// Orchestrator groups pool tasks into batches and tracks the batches that
// have not completed. It is busy while at least one batch is active.
type Orchestrator struct {
	pool     *Pool
	observer Observer

	mu     sync.Mutex
	idle   *sync.Cond
	nextID uint64
	active map[uint64]*Batch
	// Cancellable tasks of every active batch, in submission order.
	pending []*Task
	done    int
	total   int
}

// New starts an orchestrator with its own pool of threads workers.
// observer may be nil.
func New(ctx context.Context, threads int, observer Observer) *Orchestrator {
	if observer == nil {
		observer = nopObserver{}
	}
	o := &Orchestrator{
		pool:     NewPool(ctx, threads),
		observer: observer,
		active:   make(map[uint64]*Batch),
	}
	o.idle = sync.NewCond(&o.mu)
	return o
}

// Threads returns the size of the worker pool.
func (o *Orchestrator) Threads() int {
	return o.pool.Size()
}

// Close waits for queued work to drain and stops the workers.
func (o *Orchestrator) Close() {
	o.pool.Close()
}

// Busy reports whether any batch is active.
func (o *Orchestrator) Busy() bool {
	return o.Active() > 0
}

// Active returns the number of active batches.
func (o *Orchestrator) Active() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.active)
}

// Progress returns the completed and total step counts of the current run
// of batches.
func (o *Orchestrator) Progress() (done, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done, o.total
}

// WaitIdle blocks until no batch is active.
func (o *Orchestrator) WaitIdle() {
	o.mu.Lock()
	for len(o.active) > 0 {
		o.idle.Wait()
	}
	o.mu.Unlock()
}

// Begin opens a batch of the given kind expected to take steps progress
// steps. The first active batch resets the progress count; later ones
// extend its total.
func (o *Orchestrator) Begin(kind string, steps int) *Batch {
	o.mu.Lock()
	o.nextID++
	b := &Batch{o: o, id: o.nextID, kind: kind}
	first := len(o.active) == 0
	o.active[b.id] = b
	if first {
		o.done, o.total = 0, steps
	} else {
		o.total += steps
	}
	done, total := o.done, o.total
	o.mu.Unlock()

	metrics.BatchesActive.Inc()
	log.Debug("batch %d (%s) begun with %d steps", b.id, kind, steps)
	if first {
		o.observer.BusyChanged(true)
	}
	o.observer.ProgressChanged(done, total)
	return b
}

// Cancel cancels every task that has not started, latest first, waits for
// every task of every active batch to finish, and then forces the
// orchestrator idle. Barriers are not cancelled: Cancel also waits for the
// barriers of started batches, so their cleanup has run when it returns.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	pending := append([]*Task(nil), o.pending...)
	var barriers []*Task
	for _, b := range o.active {
		if barrier := b.barrierTask(); barrier != nil {
			barriers = append(barriers, barrier)
		}
	}
	o.mu.Unlock()

	metrics.CancellationsTotal.Inc()
	cancelled := 0
	for i := len(pending) - 1; i >= 0; i-- {
		if pending[i].Cancel() {
			cancelled++
		}
	}
	for _, t := range pending {
		<-t.Done()
	}
	for _, t := range barriers {
		<-t.Done()
	}
	log.Info("cancelled %d of %d background tasks", cancelled, len(pending))

	o.mu.Lock()
	wasBusy := len(o.active) > 0
	o.active = make(map[uint64]*Batch)
	o.pending = nil
	o.done, o.total = 0, 0
	o.idle.Broadcast()
	o.mu.Unlock()

	metrics.BatchesActive.Set(0)
	if wasBusy {
		o.observer.BusyChanged(false)
	}
}

// taskFinished advances the progress count for a task of an active batch.
func (o *Orchestrator) taskFinished(b *Batch, t *Task) {
	o.mu.Lock()
	if _, ok := o.active[b.id]; !ok {
		o.mu.Unlock()
		return
	}
	if t.result.Outcome != Cancelled {
		o.done++
	}
	done, total := o.done, o.total
	o.mu.Unlock()
	o.observer.ProgressChanged(done, total)
}

// complete retires a batch after its barrier has run. A batch already
// dropped by Cancel is not counted twice.
func (o *Orchestrator) complete(b *Batch) {
	o.mu.Lock()
	_, ok := o.active[b.id]
	if ok {
		delete(o.active, b.id)
		kept := o.pending[:0]
		for _, t := range o.pending {
			if t.batch != b.id {
				kept = append(kept, t)
			}
		}
		for i := len(kept); i < len(o.pending); i++ {
			o.pending[i] = nil
		}
		o.pending = kept
	}
	idle := ok && len(o.active) == 0
	if idle {
		o.done, o.total = 0, 0
		o.idle.Broadcast()
	}
	o.mu.Unlock()

	metrics.BatchesTotal.WithLabelValues(b.kind).Inc()
	if ok {
		metrics.BatchesActive.Dec()
	}
	log.Debug("batch %d (%s) complete", b.id, b.kind)
	if idle {
		o.observer.BusyChanged(false)
	}
}

// Batch is a group of tasks finished off by one barrier.
type Batch struct {
	o    *Orchestrator
	id   uint64
	kind string

	mu      sync.Mutex
	tasks   []*Task
	barrier *Task
}

// ID identifies the batch among the orchestrator's batches.
func (b *Batch) ID() uint64 {
	return b.id
}

// Kind returns the kind given to Begin.
func (b *Batch) Kind() string {
	return b.kind
}

// Submit queues a task. If after is not nil the task runs only once after
// has finished. Submit must not be called after Start.
func (b *Batch) Submit(kind, label string, after *Task, fn Func) *Task {
	t := newTask(kind, label, after, fn)
	t.batch = b.id
	t.onFinish = func(t *Task) { b.o.taskFinished(b, t) }

	b.mu.Lock()
	if b.barrier != nil {
		b.mu.Unlock()
		panic("tasks: Submit after Start")
	}
	b.tasks = append(b.tasks, t)
	b.mu.Unlock()

	b.o.mu.Lock()
	if _, ok := b.o.active[b.id]; ok {
		b.o.pending = append(b.o.pending, t)
	}
	b.o.mu.Unlock()

	if err := b.o.pool.submit(t); err != nil {
		if t.state.CompareAndSwap(statePending, stateFinished) {
			t.finish(Result{Outcome: Failed, Err: err})
		}
	}
	return t
}

// Tasks returns the tasks submitted so far.
func (b *Batch) Tasks() []*Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Task(nil), b.tasks...)
}

// Start closes the batch and queues its barrier. The barrier waits for
// every task, hands all their results to fn in submission order and then
// retires the batch. fn runs exactly once, even if every task failed or was
// cancelled. The returned task finishes after fn has returned.
func (b *Batch) Start(fn func(results []TaskResult)) *Task {
	b.mu.Lock()
	if b.barrier != nil {
		b.mu.Unlock()
		panic("tasks: Start called twice")
	}
	members := append([]*Task(nil), b.tasks...)
	barrier := newTask("barrier", b.kind, nil, func(ctx context.Context) error {
		defer b.o.complete(b)
		results := make([]TaskResult, len(members))
		for i, t := range members {
			results[i] = TaskResult{Kind: t.Kind, Label: t.Label, Result: t.Wait()}
		}
		if n := len(Failures(results)); n > 0 {
			metrics.BatchErrors.WithLabelValues(b.kind).Add(float64(n))
		}
		if fn != nil {
			fn(results)
		}
		return nil
	})
	barrier.barrier = true
	b.barrier = barrier
	b.mu.Unlock()

	if err := b.o.pool.submit(barrier); err != nil {
		// No worker will run it; run it here so the batch still retires.
		log.Warn("batch %d (%s): %v, finishing inline", b.id, b.kind, err)
		barrier.run(b.o.pool.ctx)
	}
	return barrier
}

func (b *Batch) barrierTask() *Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.barrier
}

// Failures returns the results that failed. Cancelled tasks are not
// failures.
func Failures(results []TaskResult) []TaskResult {
	var out []TaskResult
	for _, r := range results {
		if r.Outcome == Failed {
			out = append(out, r)
		}
	}
	return out
}

// Aggregate builds the single message a barrier shows for its failures,
// for example Aggregate("while generating the album", msgs). It returns ""
// when there is nothing to report.
func Aggregate(activity string, messages []string) string {
	if len(messages) == 0 {
		return ""
	}
	return fmt.Sprintf("%d errors were encountered %s:\n", len(messages), activity) +
		strings.Join(messages, "\n")
}
