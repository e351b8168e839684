// Package middleware provides cross-cutting concerns for the evaluation
// pipeline.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ahrav/coacheval/internal/ports"
)

// Compile-time verification that PrometheusMetrics implements
// MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It provides real-time monitoring of batch progress, judge
// reliability, and store health for the evaluation pipeline.
type PrometheusMetrics struct {
	operationLatency *prometheus.HistogramVec
	eventCounter     *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// all required metrics with the given registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	pm := &PrometheusMetrics{
		operationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evaluation_operation_duration_seconds",
				Help:    "Execution time of evaluation pipeline operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "judge"},
		),
		eventCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evaluation_events_total",
				Help: "Counts of evaluation pipeline events by kind.",
			},
			[]string{"event", "judge"},
		),
		systemGauges: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "evaluation_system_state",
				Help: "Current state values for the evaluation pipeline.",
			},
			[]string{"metric"},
		),
	}
	reg.MustRegister(pm.operationLatency, pm.eventCounter, pm.systemGauges)
	return pm
}

// RecordLatency implements the MetricsCollector interface by recording
// operation latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.operationLatency.WithLabelValues(operation, labels["judge"]).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by
// incrementing Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	pm.eventCounter.WithLabelValues(metric, labels["judge"]).Add(value)
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, _ map[string]string,
) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}
