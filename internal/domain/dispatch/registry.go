package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Registry tracks the dispatchers of the enabled services so the process can
// load and shut them down together.
type Registry struct {
	mu          sync.Mutex
	dispatchers []*Dispatcher
	logger      *slog.Logger
}

// NewRegistry is a wire provider.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger.With("component", "dispatch.registry")}
}

// Register adds a dispatcher.
func (r *Registry) Register(d *Dispatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatchers = append(r.dispatchers, d)
}

func (r *Registry) snapshot() []*Dispatcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Dispatcher(nil), r.dispatchers...)
}

// LoadAll loads every model in registration order and stops at the first failure.
func (r *Registry) LoadAll(ctx context.Context) error {
	for _, d := range r.snapshot() {
		start := time.Now()
		if err := d.Load(ctx); err != nil {
			return err
		}
		r.logger.Info("model ready", "dispatcher", d.Name(), "elapsed_ms", time.Since(start).Milliseconds())
	}
	return nil
}

// ShutdownAll drains every dispatcher, collecting errors.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	var errs []error
	for _, d := range r.snapshot() {
		if err := d.Shutdown(ctx); err != nil {
			r.logger.Error("dispatcher shutdown failed", "dispatcher", d.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// States maps dispatcher names to lifecycle states.
func (r *Registry) States() map[string]string {
	out := make(map[string]string)
	for _, d := range r.snapshot() {
		out[d.Name()] = d.State().String()
	}
	return out
}

// Ready reports whether every registered dispatcher can accept work.
func (r *Registry) Ready() bool {
	for _, d := range r.snapshot() {
		if d.State() != StateReady {
			return false
		}
	}
	return true
}
