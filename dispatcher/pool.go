package dispatcher

import (
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"golang.org/x/sync/semaphore"
)

var _ Dispatcher = new(Pool)

// Pool runs at most a fixed number of tasks simultaneously. Tasks scheduled while every
// worker is busy wait in a FIFO backlog; once the backlog is full as well, Schedule fails
// with ErrOverloaded.
//
// Workers aren't kept alive: a goroutine is started for a task once a slot is acquired,
// and keeps draining the backlog until it's empty.
type Pool struct {
	slots   *semaphore.Weighted
	mu      sync.Mutex
	backlog *queue.Queue
	limit   int
	closed  bool
	running atomic.Int64
	onPanic func(any)
}

func NewPool(workers, backlog int) *Pool {
	return &Pool{
		slots:   semaphore.NewWeighted(int64(workers)),
		backlog: queue.New(),
		limit:   backlog,
	}
}

// OnPanic sets a callback for panics recovered from tasks. Without one they're silently
// swallowed, so the worker survives anyway.
func (p *Pool) OnPanic(cb func(any)) *Pool {
	p.onPanic = cb
	return p
}

func (p *Pool) Schedule(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	if p.slots.TryAcquire(1) {
		go p.work(task)
		return nil
	}

	if p.backlog.Length() >= p.limit {
		return ErrOverloaded
	}

	p.backlog.Add(task)
	return nil
}

// work owns a slot. The slot is released under the same lock Schedule queues tasks
// under, so a queued task is never left without a worker.
func (p *Pool) work(task Task) {
	for task != nil {
		p.running.Add(1)
		run(task, p.onPanic)
		p.running.Add(-1)

		p.mu.Lock()
		if p.backlog.Length() > 0 {
			task = p.backlog.Remove().(Task)
		} else {
			task = nil
			p.slots.Release(1)
		}
		p.mu.Unlock()
	}
}

// Close rejects all the further tasks and drops the ones waiting in the backlog. Running
// tasks aren't interrupted.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.backlog = queue.New()
	p.mu.Unlock()
}

type Stats struct {
	Running int
	Queued  int
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	queued := p.backlog.Length()
	p.mu.Unlock()

	return Stats{
		Running: int(p.running.Load()),
		Queued:  queued,
	}
}
