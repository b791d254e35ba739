// Package metrics exposes Prometheus instrumentation for the prediction
// pipeline and its upstream calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	upstreamDuration   *prometheus.HistogramVec
	upstreamErrors     *prometheus.CounterVec
	predictions        *prometheus.CounterVec
	predictionDuration prometheus.Histogram
	upstreamUp         prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aqi_upstream_request_duration_seconds",
				Help:    "Histogram of upstream API call durations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"call"},
		),
		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aqi_upstream_errors_total",
				Help: "Number of failed upstream API calls.",
			},
			[]string{"call"},
		),
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aqi_predictions_total",
				Help: "Number of prediction requests by outcome.",
			},
			[]string{"outcome"},
		),
		predictionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aqi_prediction_duration_seconds",
				Help:    "Histogram of end-to-end prediction times.",
				Buckets: prometheus.DefBuckets,
			},
		),
		upstreamUp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "aqi_upstream_up",
				Help: "1 if the last upstream probe succeeded.",
			},
		),
	}

	m.registry.MustRegister(
		m.upstreamDuration,
		m.upstreamErrors,
		m.predictions,
		m.predictionDuration,
		m.upstreamUp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveUpstream records one upstream call.
func (m *Metrics) ObserveUpstream(call string, d time.Duration, err error) {
	m.upstreamDuration.WithLabelValues(call).Observe(d.Seconds())
	if err != nil {
		m.upstreamErrors.WithLabelValues(call).Inc()
	}
}

// ObservePrediction records one prediction request.
func (m *Metrics) ObservePrediction(outcome string, d time.Duration) {
	m.predictions.WithLabelValues(outcome).Inc()
	m.predictionDuration.Observe(d.Seconds())
}

// SetUpstreamUp records the result of the latest upstream probe.
func (m *Metrics) SetUpstreamUp(up bool) {
	if up {
		m.upstreamUp.Set(1)
		return
	}
	m.upstreamUp.Set(0)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
