package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/ml-services/pkg/errors"
	"github.com/yanqian/ml-services/pkg/workerpool"
)

func TestDispatchManyPreservesInputOrder(t *testing.T) {
	d := newReadyDispatcher(t, 4)
	units := make([]int, 50)
	for i := range units {
		units[i] = i
	}

	out, err := DispatchMany(context.Background(), d, units, Work[int, int, int]{
		Infer: func(ctx context.Context, n int) (int, error) {
			// randomise completion order
			time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
			return n * 10, nil
		},
	})
	require.NoError(t, err)
	require.Len(t, out, len(units))
	for i, o := range out {
		require.True(t, o.Valid)
		require.Equal(t, i*10, o.Value)
	}
}

func TestDispatchManySkipsAbsentUnits(t *testing.T) {
	d := newReadyDispatcher(t, 2)
	a, c := "a", "c"
	var calls atomic.Int32

	out, err := DispatchMany(context.Background(), d, []*string{&a, nil, &c}, Work[*string, string, string]{
		Skip: func(u *string) bool { return u == nil },
		Prepare: func(ctx context.Context, u *string) (string, error) {
			return *u, nil
		},
		Infer: func(ctx context.Context, s string) (string, error) {
			calls.Add(1)
			return s + "!", nil
		},
	})
	require.NoError(t, err)
	require.Equal(t, []Outcome[string]{Some("a!"), None[string](), Some("c!")}, out)
	require.Equal(t, int32(2), calls.Load())
}

func TestDispatchManyDegradesPrepareFailuresToNull(t *testing.T) {
	d := newReadyDispatcher(t, 2)

	out, err := DispatchMany(context.Background(), d, []string{"ok", "broken", "ok2"}, Work[string, string, int]{
		Prepare: func(ctx context.Context, u string) (string, error) {
			if u == "broken" {
				return "", errors.New("dial tcp: connection refused")
			}
			return u, nil
		},
		Infer: func(ctx context.Context, s string) (int, error) {
			return len(s), nil
		},
	})
	require.NoError(t, err)
	require.Equal(t, []Outcome[int]{Some(2), None[int](), Some(3)}, out)
}

func TestDispatchManyNoResultBecomesNull(t *testing.T) {
	d := newReadyDispatcher(t, 1)

	out, err := DispatchMany(context.Background(), d, []string{"", "text"}, Work[string, string, string]{
		Infer: func(ctx context.Context, s string) (string, error) {
			if s == "" {
				return "", ErrNoResult
			}
			return s, nil
		},
	})
	require.NoError(t, err)
	require.Equal(t, []Outcome[string]{None[string](), Some("text")}, out)
}

func TestDispatchManyInferFailureFailsBatchAfterAllUnits(t *testing.T) {
	d := newReadyDispatcher(t, 2)
	boom := errors.New("cuda out of memory")
	var finished atomic.Int32

	out, err := DispatchMany(context.Background(), d, []int{1, 2, 3, 4}, Work[int, int, int]{
		Infer: func(ctx context.Context, n int) (int, error) {
			defer finished.Add(1)
			if n == 2 {
				return 0, boom
			}
			time.Sleep(2 * time.Millisecond)
			return n, nil
		},
	})
	require.ErrorIs(t, err, boom)
	require.Nil(t, out)
	require.Equal(t, int32(4), finished.Load())
}

func TestDispatchManyEmptyBatch(t *testing.T) {
	d := newReadyDispatcher(t, 1)
	out, err := DispatchMany(context.Background(), d, nil, Work[int, int, int]{
		Infer: func(ctx context.Context, n int) (int, error) { return n, nil },
	})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestDispatchManyRequiresPrepareForDifferentTypes(t *testing.T) {
	d := newReadyDispatcher(t, 1)
	out, err := DispatchMany(context.Background(), d, []int{1}, Work[int, string, string]{
		Infer: func(ctx context.Context, s string) (string, error) { return s, nil },
	})
	require.NoError(t, err)
	require.Equal(t, []Outcome[string]{None[string]()}, out)
}

func TestDispatchOnePropagatesFailureUnchanged(t *testing.T) {
	d := newReadyDispatcher(t, 1)
	boom := errors.New("tokenizer mismatch")

	_, err := DispatchOne(context.Background(), d, "x", func(ctx context.Context, s string) (string, error) {
		return "", boom
	})
	require.Equal(t, boom, err)

	got, err := DispatchOne(context.Background(), d, 3, func(ctx context.Context, n int) (int, error) {
		return n * n, nil
	})
	require.NoError(t, err)
	require.Equal(t, 9, got)
}

func TestLifecycle(t *testing.T) {
	model := &stubModel{}
	pool := workerpool.New("lifecycle", 1)
	d := New("lifecycle", model, pool, nil, newTestLogger())
	require.Equal(t, StateLoading, d.State())

	_, err := DispatchOne(context.Background(), d, 1, identity[int])
	require.ErrorIs(t, err, ErrNotReady)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotReady))

	require.NoError(t, d.Load(context.Background()))
	require.Equal(t, StateReady, d.State())
	require.NoError(t, d.Load(context.Background()))
	require.Equal(t, int32(1), model.loads.Load())

	require.NoError(t, d.Shutdown(context.Background()))
	require.Equal(t, StateClosed, d.State())
	require.True(t, model.closed.Load())

	_, err = DispatchMany(context.Background(), d, []int{1}, Work[int, int, int]{Infer: identity[int]})
	require.ErrorIs(t, err, ErrClosed)
}

func TestLoadFailureKeepsDispatcherLoading(t *testing.T) {
	model := &stubModel{loadErr: errors.New("weights not found")}
	d := New("broken", model, workerpool.New("broken", 1), nil, newTestLogger())
	t.Cleanup(func() { _ = d.Shutdown(context.Background()) })

	err := d.Load(context.Background())
	require.ErrorContains(t, err, "load broken model: weights not found")
	require.Equal(t, StateLoading, d.State())
}

func TestRecorderCountsOutcomes(t *testing.T) {
	rec := &countingRecorder{counts: map[string]int{}}
	d := New("counted", nil, workerpool.New("counted", 2), rec, newTestLogger())
	require.NoError(t, d.Load(context.Background()))
	t.Cleanup(func() { _ = d.Shutdown(context.Background()) })

	_, err := DispatchMany(context.Background(), d, []int{0, 1, 2}, Work[int, int, int]{
		Skip:  func(n int) bool { return n == 0 },
		Infer: identity[int],
	})
	require.NoError(t, err)
	require.Equal(t, map[string]int{"null": 1, "ok": 2}, rec.snapshot())
}

func TestOutcomeJSON(t *testing.T) {
	payload, err := json.Marshal([]Outcome[string]{Some("text"), None[string]()})
	require.NoError(t, err)
	require.JSONEq(t, `["text", null]`, string(payload))

	var decoded []Outcome[string]
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, []Outcome[string]{Some("text"), None[string]()}, decoded)
}

func TestRegistryLoadsAndShutsDownAll(t *testing.T) {
	reg := NewRegistry(newTestLogger())
	first := New("first", &stubModel{}, workerpool.New("first", 1), nil, newTestLogger())
	second := New("second", &stubModel{}, workerpool.New("second", 1), nil, newTestLogger())
	reg.Register(first)
	reg.Register(second)

	require.False(t, reg.Ready())
	require.NoError(t, reg.LoadAll(context.Background()))
	require.True(t, reg.Ready())
	require.Equal(t, map[string]string{"first": "ready", "second": "ready"}, reg.States())

	require.NoError(t, reg.ShutdownAll(context.Background()))
	require.Equal(t, map[string]string{"first": "closed", "second": "closed"}, reg.States())
}

func identity[T any](_ context.Context, v T) (T, error) {
	return v, nil
}

func newReadyDispatcher(t *testing.T, workers int) *Dispatcher {
	t.Helper()
	d := New(t.Name(), &stubModel{}, workerpool.New(t.Name(), workers), nil, newTestLogger())
	require.NoError(t, d.Load(context.Background()))
	t.Cleanup(func() { _ = d.Shutdown(context.Background()) })
	return d
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubModel struct {
	loadErr error
	loads   atomic.Int32
	closed  atomic.Bool
}

func (m *stubModel) Load(context.Context) error {
	m.loads.Add(1)
	return m.loadErr
}

func (m *stubModel) Close() error {
	m.closed.Store(true)
	return nil
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) UnitOutcome(_, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[outcome]++
}

func (r *countingRecorder) snapshot() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}
