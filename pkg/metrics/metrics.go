package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls the Prometheus exposition endpoint.
type Config struct {
	Enabled   bool
	Address   string
	Namespace string
	Service   string
}

// Metrics owns the registry and the collectors shared by all inference services.
type Metrics struct {
	Server   *http.Server
	Registry *prometheus.Registry

	queueDepth   *prometheus.GaugeVec
	taskDuration *prometheus.HistogramVec
	tasks        *prometheus.CounterVec
	units        *prometheus.CounterVec
}

// New builds a registry with Go/process collectors and the pool collectors.
func New(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()
	wrapped := prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.Service}, registry)
	wrapped.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: registry,
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "worker_pool_queue_depth",
			Help:      "Tasks waiting for a free worker.",
		}, []string{"pool"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "worker_pool_task_duration_seconds",
			Help:      "Time spent executing inference tasks on a worker.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"pool"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "worker_pool_tasks_total",
			Help:      "Inference tasks executed, by result.",
		}, []string{"pool", "result"}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "dispatch_units_total",
			Help:      "Fan-out units by outcome (ok, null, failed).",
		}, []string{"dispatcher", "outcome"}),
	}
	wrapped.MustRegister(m.queueDepth, m.taskDuration, m.tasks, m.units)

	m.Server = &http.Server{
		Addr:              cfg.Address,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return m
}

// QueueDepth implements workerpool.Observer.
func (m *Metrics) QueueDepth(pool string, depth int) {
	m.queueDepth.WithLabelValues(pool).Set(float64(depth))
}

// TaskDone implements workerpool.Observer.
func (m *Metrics) TaskDone(pool string, elapsed time.Duration, err error) {
	m.taskDuration.WithLabelValues(pool).Observe(elapsed.Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.tasks.WithLabelValues(pool, result).Inc()
}

// UnitOutcome counts one fan-out unit.
func (m *Metrics) UnitOutcome(dispatcher, outcome string) {
	m.units.WithLabelValues(dispatcher, outcome).Inc()
}

// ListenAndServe runs the exposition server; a closed server is not an error.
func (m *Metrics) ListenAndServe() error {
	if err := m.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
