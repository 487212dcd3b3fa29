// Package metrics exposes Prometheus instrumentation for trustprop runs. Each
// Recorder owns its own registry, so runs never share collectors, and the
// collected values can be written out in node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trustprop"

// Recorder collects run metrics. A nil *Recorder is a valid no-op recorder.
type Recorder struct {
	reg *prometheus.Registry

	recordsLoaded       prometheus.Counter
	actors              prometheus.Gauge
	edges               prometheus.Gauge
	lastTransaction     prometheus.Gauge
	propagations        prometheus.Counter
	propagationDuration prometheus.Histogram
	runs                *prometheus.CounterVec
}

// NewRecorder creates a Recorder backed by a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		reg: reg,
		recordsLoaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      "Rating records read from the input history.",
		}),
		actors: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_actors",
			Help:      "Source actors in the most recently built graph.",
		}),
		edges: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Edges in the most recently built graph.",
		}),
		lastTransaction: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_transaction_timestamp_seconds",
			Help:      "Time of the last rating included in the graph.",
		}),
		propagations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "propagations_total",
			Help:      "Completed single-start trust propagations.",
		}),
		propagationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "propagation_duration_seconds",
			Help:      "Time spent propagating trust from one start actor.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
		}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Build runs by result.",
		}, []string{"result"}),
	}
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// ObserveRecords counts n loaded rating records.
func (r *Recorder) ObserveRecords(n int) {
	if r == nil {
		return
	}
	r.recordsLoaded.Add(float64(n))
}

// ObserveGraph records the size of a freshly built graph.
func (r *Recorder) ObserveGraph(actors, edges int, lastTime int64) {
	if r == nil {
		return
	}
	r.actors.Set(float64(actors))
	r.edges.Set(float64(edges))
	r.lastTransaction.Set(float64(lastTime))
}

// ObservePropagation records one finished propagation. Its signature matches
// trust.Options.Observer and it is safe for concurrent use.
func (r *Recorder) ObservePropagation(_ int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.propagations.Inc()
	r.propagationDuration.Observe(elapsed.Seconds())
}

// ObserveRun counts a finished build run as "ok" or "error".
func (r *Recorder) ObserveRun(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.runs.WithLabelValues(result).Inc()
}

// WriteTextfile writes the current values to path in the text exposition
// format read by node_exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
