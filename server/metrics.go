package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teranos/exopredict/predict"
)

const metricsNamespace = "exopredict"

// Metrics holds the server's Prometheus collectors. Each server owns its
// registry so several servers (and tests) never collide.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	predictions *prometheus.CounterVec
	rows        prometheus.Counter
	recovered   *prometheus.CounterVec
	rateLimited prometheus.Counter
	history     *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "predictions_total",
			Help:      "Successful predict calls by endpoint and result mode.",
		}, []string{"endpoint", "mode"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "predicted_rows_total",
			Help:      "Input rows that received a prediction.",
		}),
		recovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "recovered_conditions_total",
			Help:      "Conditions recovered instead of failing the request.",
		}, []string{"condition"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		history: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "history_writes_total",
			Help:      "Prediction history writes by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.requests, m.duration, m.predictions, m.rows, m.recovered, m.rateLimited, m.history,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// observePrediction records one successful predict call.
func (m *Metrics) observePrediction(endpoint string, rows int, res *predict.Result) {
	mode := "single"
	if res.Batch != nil {
		mode = "batch"
	}
	m.predictions.WithLabelValues(endpoint, mode).Inc()
	m.rows.Add(float64(rows))

	d := res.Diagnostics
	if d.Unparseable > 0 {
		m.recovered.WithLabelValues("unparseable_value").Add(float64(d.Unparseable))
	}
	if d.DecodeFailures > 0 {
		m.recovered.WithLabelValues("decode_failure").Add(float64(d.DecodeFailures))
	}
	if d.ProbabilitiesOmitted {
		m.recovered.WithLabelValues("unsupported_operation").Inc()
	}
}
