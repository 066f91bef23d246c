package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmitReturnsValue(t *testing.T) {
	pool := New("test", 2)
	t.Cleanup(func() { _ = pool.Close(context.Background()) })

	f := Submit(context.Background(), pool, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	got, err := f.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, got)
}

func TestSubmitPropagatesError(t *testing.T) {
	pool := New("test", 1)
	t.Cleanup(func() { _ = pool.Close(context.Background()) })

	boom := errors.New("boom")
	_, err := Submit(context.Background(), pool, func(ctx context.Context) (string, error) {
		return "", boom
	}).Await(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestSubmitRecoversPanic(t *testing.T) {
	pool := New("test", 1)
	t.Cleanup(func() { _ = pool.Close(context.Background()) })

	_, err := Submit(context.Background(), pool, func(ctx context.Context) (int, error) {
		panic("model exploded")
	}).Await(context.Background())
	require.ErrorContains(t, err, "model exploded")

	// the worker survives the panic
	got, err := Submit(context.Background(), pool, func(ctx context.Context) (int, error) {
		return 7, nil
	}).Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, got)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const workers = 3
	pool := New("test", workers)
	t.Cleanup(func() { _ = pool.Close(context.Background()) })

	var (
		running atomic.Int32
		peak    atomic.Int32
	)
	futures := make([]*Future[struct{}], 0, 20)
	for i := 0; i < 20; i++ {
		futures = append(futures, Submit(context.Background(), pool, func(ctx context.Context) (struct{}, error) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return struct{}{}, nil
		}))
	}
	for _, f := range futures {
		_, err := f.Await(context.Background())
		require.NoError(t, err)
	}
	require.LessOrEqual(t, peak.Load(), int32(workers))
	require.Positive(t, peak.Load())
}

func TestSubmitNeverBlocksWhenWorkersBusy(t *testing.T) {
	pool := New("test", 1)
	release := make(chan struct{})
	t.Cleanup(func() {
		close(release)
		_ = pool.Close(context.Background())
	})

	started := make(chan struct{})
	Submit(context.Background(), pool, func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 0, nil
	})
	<-started

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			Submit(context.Background(), pool, func(ctx context.Context) (int, error) { return i, nil })
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("submit blocked while the only worker was busy")
	}
}

func TestAwaitCancellationDoesNotCancelTask(t *testing.T) {
	pool := New("test", 1)
	t.Cleanup(func() { _ = pool.Close(context.Background()) })

	release := make(chan struct{})
	var taskCtxErr atomic.Value
	ctx, cancel := context.WithCancel(context.Background())
	f := Submit(ctx, pool, func(taskCtx context.Context) (string, error) {
		<-release
		if err := taskCtx.Err(); err != nil {
			taskCtxErr.Store(err)
		}
		return "finished", nil
	})

	cancel()
	_, err := f.Await(ctx)
	require.ErrorIs(t, err, context.Canceled)

	close(release)
	got, err := f.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, "finished", got)
	require.Nil(t, taskCtxErr.Load())
}

func TestCloseDrainsQueueAndRejectsNewTasks(t *testing.T) {
	pool := New("test", 1)

	var (
		mu   sync.Mutex
		seen []int
	)
	futures := make([]*Future[int], 0, 5)
	for i := 0; i < 5; i++ {
		futures = append(futures, Submit(context.Background(), pool, func(ctx context.Context) (int, error) {
			mu.Lock()
			seen = append(seen, i)
			mu.Unlock()
			return i, nil
		}))
	}

	require.NoError(t, pool.Close(context.Background()))
	for _, f := range futures {
		_, err := f.Await(context.Background())
		require.NoError(t, err)
	}
	require.Len(t, seen, 5)

	_, err := Submit(context.Background(), pool, func(ctx context.Context) (int, error) {
		return 0, nil
	}).Await(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

type recordingObserver struct {
	mu        sync.Mutex
	done      int
	failures  int
	lastDepth int
}

func (o *recordingObserver) QueueDepth(_ string, depth int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastDepth = depth
}

func (o *recordingObserver) TaskDone(_ string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.done++
	if err != nil {
		o.failures++
	}
}

func TestObserverSeesEveryTask(t *testing.T) {
	obs := &recordingObserver{}
	pool := New("test", 2, WithObserver(obs))

	ok := Submit(context.Background(), pool, func(ctx context.Context) (int, error) { return 1, nil })
	bad := Submit(context.Background(), pool, func(ctx context.Context) (int, error) { return 0, errors.New("nope") })
	_, _ = ok.Await(context.Background())
	_, _ = bad.Await(context.Background())
	require.NoError(t, pool.Close(context.Background()))

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Equal(t, 2, obs.done)
	require.Equal(t, 1, obs.failures)
}

func TestQueueDepthSettlesAtZero(t *testing.T) {
	obs := &recordingObserver{}
	pool := New("test", 4, WithObserver(obs))

	var (
		wg       sync.WaitGroup
		failures atomic.Int32
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := Submit(context.Background(), pool, func(ctx context.Context) (int, error) {
					return i, nil
				}).Await(context.Background())
				if err != nil {
					failures.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	require.Zero(t, failures.Load())
	require.NoError(t, pool.Close(context.Background()))

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Equal(t, 0, obs.lastDepth)
	require.Equal(t, 400, obs.done)
}
