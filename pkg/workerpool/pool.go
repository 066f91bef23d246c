package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrClosed is returned for tasks submitted after Close.
var ErrClosed = errors.New("worker pool closed")

// Observer receives pool instrumentation events. QueueDepth is called with
// the pool lock held and must not call back into the pool.
type Observer interface {
	QueueDepth(pool string, depth int)
	TaskDone(pool string, elapsed time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) QueueDepth(string, int) {}

func (noopObserver) TaskDone(string, time.Duration, error) {}

// Option customises a Pool.
type Option func(*Pool)

// WithObserver attaches instrumentation to the pool.
func WithObserver(obs Observer) Option {
	return func(p *Pool) {
		if obs != nil {
			p.observer = obs
		}
	}
}

type task struct {
	ctx context.Context
	run func(ctx context.Context)
}

// Pool runs blocking work on a fixed number of goroutines. Submissions never
// block: when every worker is busy, tasks wait in an unbounded FIFO queue.
type Pool struct {
	name     string
	workers  int
	observer Observer

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []task
	closed bool

	wg sync.WaitGroup
}

// New starts a pool with the given number of workers (at least one).
func New(name string, workers int, opts ...Option) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{name: name, workers: workers, observer: noopObserver{}}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

// Name identifies the pool in logs and metrics.
func (p *Pool) Name() string {
	return p.name
}

func (p *Pool) enqueue(t task) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.queue = append(p.queue, t)
	// report under the lock so the gauge follows queue order
	p.observer.QueueDepth(p.name, len(p.queue))
	p.mu.Unlock()

	p.cond.Signal()
	return nil
}

func (p *Pool) work() {
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
		p.queue[0] = task{}
		p.queue = p.queue[1:]
		p.observer.QueueDepth(p.name, len(p.queue))
		p.mu.Unlock()

		t.run(t.ctx)
	}
}

// Close stops accepting tasks and waits until queued and running tasks have
// finished or ctx ends.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close pool %s: %w", p.name, ctx.Err())
	}
}

// Submit enqueues fn on the pool and returns a Future for its result. The
// task context keeps the values of ctx but not its cancellation: once
// submitted, a task always runs to completion.
func Submit[R any](ctx context.Context, p *Pool, fn func(ctx context.Context) (R, error)) *Future[R] {
	f := newFuture[R]()
	t := task{
		ctx: context.WithoutCancel(ctx),
		run: func(taskCtx context.Context) {
			start := time.Now()
			value, err := runSafely(taskCtx, fn)
			p.observer.TaskDone(p.name, time.Since(start), err)
			f.resolve(value, err)
		},
	}
	if err := p.enqueue(t); err != nil {
		var zero R
		f.resolve(zero, err)
	}
	return f
}

func runSafely[R any](ctx context.Context, fn func(ctx context.Context) (R, error)) (value R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx)
}
