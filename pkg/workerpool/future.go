package workerpool

import "context"

// Future is the handle of one submitted task.
type Future[R any] struct {
	done  chan struct{}
	value R
	err   error
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{done: make(chan struct{})}
}

func (f *Future[R]) resolve(value R, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done is closed once the task has finished.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the task finishes or ctx ends. A cancelled ctx only
// stops the wait; the task keeps running on its worker.
func (f *Future[R]) Await(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}
