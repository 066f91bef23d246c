package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yanqian/ml-services/pkg/workerpool"
)

// ErrNoResult lets an inference step report that a unit legitimately has no
// value; the unit becomes null instead of failing the batch.
var ErrNoResult = errors.New("no result")

// Outcome is the per-unit result of a fan-out: a value or null.
type Outcome[R any] struct {
	Value R
	Valid bool
}

// Some wraps a value.
func Some[R any](value R) Outcome[R] {
	return Outcome[R]{Value: value, Valid: true}
}

// None is the null outcome.
func None[R any]() Outcome[R] {
	return Outcome[R]{}
}

// MarshalJSON encodes a null outcome as JSON null.
func (o Outcome[R]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (o *Outcome[R]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Outcome[R]{}
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// Work describes how each unit of a batch is processed.
type Work[U, I, R any] struct {
	// Skip marks units that are absent; they are never submitted.
	Skip func(unit U) bool
	// Prepare runs on the request goroutine (fetching, decoding). An error
	// degrades the unit to null. May be nil when I and U are the same type.
	Prepare func(ctx context.Context, unit U) (I, error)
	// Infer runs on the worker pool. An error fails the whole batch.
	Infer func(ctx context.Context, input I) (R, error)
}

// DispatchMany fans units out to the pool and waits for all of them. The
// result has one outcome per unit, in input order.
func DispatchMany[U, I, R any](ctx context.Context, d *Dispatcher, units []U, work Work[U, I, R]) ([]Outcome[R], error) {
	if err := d.checkReady(); err != nil {
		return nil, err
	}
	if work.Infer == nil {
		return nil, fmt.Errorf("dispatch %s: infer step is required", d.name)
	}

	out := make([]Outcome[R], len(units))
	var g errgroup.Group
	for i, unit := range units {
		g.Go(func() error {
			outcome, err := dispatchUnit(ctx, d, i, unit, work)
			if err != nil {
				d.recorder.UnitOutcome(d.name, "failed")
				d.logger.Error("unit inference failed", "unit", i, "error", err)
				return err
			}
			if outcome.Valid {
				d.recorder.UnitOutcome(d.name, "ok")
			} else {
				d.recorder.UnitOutcome(d.name, "null")
			}
			out[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func dispatchUnit[U, I, R any](ctx context.Context, d *Dispatcher, index int, unit U, work Work[U, I, R]) (Outcome[R], error) {
	if work.Skip != nil && work.Skip(unit) {
		return None[R](), nil
	}

	input, err := prepare(ctx, unit, work.Prepare)
	if err != nil {
		d.logger.Warn("unit degraded to null", "unit", index, "error", err)
		return None[R](), nil
	}

	value, err := workerpool.Submit(ctx, d.pool, func(taskCtx context.Context) (R, error) {
		return work.Infer(taskCtx, input)
	}).Await(ctx)
	switch {
	case errors.Is(err, ErrNoResult):
		return None[R](), nil
	case err != nil:
		return None[R](), err
	}
	return Some(value), nil
}

func prepare[U, I any](ctx context.Context, unit U, fn func(ctx context.Context, unit U) (I, error)) (I, error) {
	if fn != nil {
		return fn(ctx, unit)
	}
	input, ok := any(unit).(I)
	if !ok {
		return input, fmt.Errorf("unit of type %T needs a prepare step", unit)
	}
	return input, nil
}
