package tasks

import (
	"context"
	"errors"
	"sync"

	"dyphal/internal/metrics"
)

// ErrClosed is the error of a task submitted after the pool was closed.
var ErrClosed = errors.New("task pool closed")

// Pool is a fixed set of workers serving an unbounded FIFO queue. A task
// waiting on its predecessor holds its worker; tasks are always queued after
// their predecessor, so the wait cannot starve the predecessor itself.
type Pool struct {
	ctx  context.Context
	size int

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*Task
	closed bool

	wg sync.WaitGroup
}

// NewPool starts size workers. Tasks receive ctx; it carries no deadline of
// its own and is not cancelled by Orchestrator.Cancel.
func NewPool(ctx context.Context, size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{ctx: ctx, size: size}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	log.Debug("started %d workers", size)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) submit(t *Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.queue = append(p.queue, t)
	metrics.TasksQueued.Inc()
	p.cond.Signal()
	return nil
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		t := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		metrics.TasksQueued.Dec()
		t.run(p.ctx)
	}
}

// Close stops accepting tasks, lets the workers drain the queue and waits
// for them to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}
