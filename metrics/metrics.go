// Package metrics exposes Prometheus instrumentation for the generation
// pipeline.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the pipeline metrics. A nil *Collector is valid and
// records nothing, so callers never need to check.
type Collector struct {
	gatherer prometheus.Gatherer

	RowsGenerated  prometheus.Counter
	RowsFlushed    prometheus.Counter
	BatchesFlushed prometheus.Counter
	SinkErrors     prometheus.Counter
	FlushDuration  prometheus.Histogram
	ActiveWorkers  prometheus.Gauge
}

// NewCollector registers the pipeline metrics against reg, falling back to
// the global registry when reg is nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	var err error
	c := &Collector{gatherer: gatherer}

	if c.RowsGenerated, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planes_rows_generated_total",
		Help: "Rows synthesized by plane workers.",
	})); err != nil {
		return nil, err
	}
	if c.RowsFlushed, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planes_rows_flushed_total",
		Help: "Rows accepted by the ingestion sink.",
	})); err != nil {
		return nil, err
	}
	if c.BatchesFlushed, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planes_batches_flushed_total",
		Help: "Batches accepted by the ingestion sink.",
	})); err != nil {
		return nil, err
	}
	if c.SinkErrors, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planes_sink_errors_total",
		Help: "Batches the ingestion sink rejected.",
	})); err != nil {
		return nil, err
	}
	if c.FlushDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planes_flush_duration_seconds",
		Help:    "Time spent handing one batch to the sink.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})); err != nil {
		return nil, err
	}
	if c.ActiveWorkers, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "planes_active_workers",
		Help: "Plane workers that have not yet reached a terminal state.",
	})); err != nil {
		return nil, err
	}

	return c, nil
}

// register hands back the already registered metric when one with the same
// name exists, e.g. when a collector is built twice on the default registry
func register[T prometheus.Collector](reg prometheus.Registerer, m T) (T, error) {
	err := reg.Register(m)
	if err == nil {
		return m, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing, nil
		}
	}

	var zero T
	return zero, fmt.Errorf("failed to register metric: %w", err)
}

// Generated records one synthesized row
func (c *Collector) Generated() {
	if c == nil {
		return
	}
	c.RowsGenerated.Inc()
}

// Flushed records the outcome of one sink call
func (c *Collector) Flushed(rows int, took time.Duration, err error) {
	if c == nil {
		return
	}

	c.FlushDuration.Observe(took.Seconds())
	if err != nil {
		c.SinkErrors.Inc()
		return
	}

	c.RowsFlushed.Add(float64(rows))
	c.BatchesFlushed.Inc()
}

// WorkerStarted and WorkerStopped track live plane workers
func (c *Collector) WorkerStarted() {
	if c == nil {
		return
	}
	c.ActiveWorkers.Inc()
}

func (c *Collector) WorkerStopped() {
	if c == nil {
		return
	}
	c.ActiveWorkers.Dec()
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
