// Package metrics exposes Prometheus counters for completion attempts and
// model calls. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "context_engine"

// Metrics owns a private registry so tests and multiple servers in one
// process don't collide on the global one.
type Metrics struct {
	registry     *prometheus.Registry
	attempts     *prometheus.CounterVec
	gateLatency  *prometheus.HistogramVec
	modelCalls   *prometheus.CounterVec
	modelLatency *prometheus.HistogramVec
	logEntries   *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_attempts_total",
			Help:      "Task completion attempts by outcome and the gate that stopped them.",
		}, []string{"outcome", "gate"}),
		gateLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gate_duration_seconds",
			Help:      "Wall-clock duration of each completion gate, by gate and whether it passed.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"gate", "result"}),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Language-model CLI invocations by model and outcome.",
		}, []string{"model", "outcome"}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Wall-clock duration of language-model CLI invocations.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"model"}),
		logEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "work_log_entries_total",
			Help:      "Work log entries appended, by status.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		m.attempts,
		m.gateLatency,
		m.modelCalls,
		m.modelLatency,
		m.logEntries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveAttempt counts one gatekeeper run. gate is empty on success.
func (m *Metrics) ObserveAttempt(success bool, gate string) {
	if m == nil {
		return
	}
	outcome := "completed"
	if !success {
		outcome = "failed"
	}
	if gate == "" {
		gate = "none"
	}
	m.attempts.WithLabelValues(outcome, gate).Inc()
}

// ObserveGate records how long one gate took.
func (m *Metrics) ObserveGate(gate string, passed bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "pass"
	if !passed {
		result = "fail"
	}
	m.gateLatency.WithLabelValues(gate, result).Observe(elapsed.Seconds())
}

// ObserveModelCall counts one model invocation and its latency.
func (m *Metrics) ObserveModelCall(model, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.modelCalls.WithLabelValues(model, outcome).Inc()
	m.modelLatency.WithLabelValues(model).Observe(elapsed.Seconds())
}

// ObserveLogEntry counts one work log append.
func (m *Metrics) ObserveLogEntry(status string) {
	if m == nil {
		return
	}
	m.logEntries.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
