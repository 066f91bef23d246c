package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	apperrors "github.com/yanqian/ml-services/pkg/errors"
	"github.com/yanqian/ml-services/pkg/workerpool"
)

var (
	// ErrNotReady is returned when work is dispatched before the model is loaded.
	ErrNotReady = errors.New("model not loaded")
	// ErrClosed is returned when work is dispatched after shutdown.
	ErrClosed = errors.New("dispatcher shut down")
)

// State is the lifecycle position of a Dispatcher.
type State int32

const (
	StateLoading State = iota
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Model is an inference backend loaded once at startup and then shared
// read-only by every worker.
type Model interface {
	Load(ctx context.Context) error
	Close() error
}

// Recorder counts fan-out outcomes.
type Recorder interface {
	UnitOutcome(dispatcher, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) UnitOutcome(string, string) {}

// Dispatcher offloads model calls for one service onto its worker pool.
type Dispatcher struct {
	name     string
	model    Model
	pool     *workerpool.Pool
	recorder Recorder
	logger   *slog.Logger
	state    atomic.Int32
}

// New wires a dispatcher around an unloaded model and a running pool.
func New(name string, model Model, pool *workerpool.Pool, recorder Recorder, logger *slog.Logger) *Dispatcher {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Dispatcher{
		name:     name,
		model:    model,
		pool:     pool,
		recorder: recorder,
		logger:   logger.With("component", "dispatch.dispatcher", "dispatcher", name),
	}
}

// Name identifies the dispatcher.
func (d *Dispatcher) Name() string {
	return d.name
}

// State reports the lifecycle state.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Load warms the model up and marks the dispatcher ready.
func (d *Dispatcher) Load(ctx context.Context) error {
	if d.State() != StateLoading {
		return nil
	}
	if d.model != nil {
		if err := d.model.Load(ctx); err != nil {
			return fmt.Errorf("load %s model: %w", d.name, err)
		}
	}
	d.state.CompareAndSwap(int32(StateLoading), int32(StateReady))
	return nil
}

// Shutdown rejects new work, drains the pool and releases the model.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	if State(d.state.Swap(int32(StateClosed))) == StateClosed {
		return nil
	}
	poolErr := d.pool.Close(ctx)
	var modelErr error
	if d.model != nil {
		modelErr = d.model.Close()
	}
	return errors.Join(poolErr, modelErr)
}

func (d *Dispatcher) checkReady() error {
	switch d.State() {
	case StateReady:
		return nil
	case StateClosed:
		return apperrors.Wrap(apperrors.CodeNotReady, d.name+" is shutting down", ErrClosed)
	default:
		return apperrors.Wrap(apperrors.CodeNotReady, d.name+" is still loading", ErrNotReady)
	}
}

// DispatchOne runs fn(arg) on the pool and waits for it. Failures are
// returned unchanged.
func DispatchOne[A, R any](ctx context.Context, d *Dispatcher, arg A, fn func(ctx context.Context, arg A) (R, error)) (R, error) {
	if err := d.checkReady(); err != nil {
		var zero R
		return zero, err
	}
	return workerpool.Submit(ctx, d.pool, func(taskCtx context.Context) (R, error) {
		return fn(taskCtx, arg)
	}).Await(ctx)
}
