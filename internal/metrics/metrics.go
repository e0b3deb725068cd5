// Package metrics holds the Prometheus collectors for discovery and verification.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leadscout"

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry       *prometheus.Registry
	adapterRecords *prometheus.CounterVec
	adapterErrors  *prometheus.CounterVec
	probeOutcomes  *prometheus.CounterVec
	verifyDuration prometheus.Histogram
	runs           *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		adapterRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_records_total",
			Help:      "Business records returned by directory adapters.",
		}, []string{"source"}),
		adapterErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_errors_total",
			Help:      "Directory adapter calls that ended in an error.",
		}, []string{"source"}),
		probeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_outcomes_total",
			Help:      "Liveness probe verdicts by status.",
		}, []string{"status"}),
		verifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "business_verification_seconds",
			Help:      "Wall time spent verifying one business.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_runs_total",
			Help:      "Discovery runs by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.adapterRecords, m.adapterErrors, m.probeOutcomes, m.verifyDuration, m.runs,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) AdapterResult(source string, records int, err error) {
	if m == nil {
		return
	}
	m.adapterRecords.WithLabelValues(source).Add(float64(records))
	if err != nil {
		m.adapterErrors.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) ProbeOutcome(status string) {
	if m == nil {
		return
	}
	m.probeOutcomes.WithLabelValues(status).Inc()
}

func (m *Metrics) VerificationDone(d time.Duration) {
	if m == nil {
		return
	}
	m.verifyDuration.Observe(d.Seconds())
}

func (m *Metrics) RunFinished(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}
