// Package metrics provides Prometheus metrics for the file server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.hackfix.me/dirserve/web/server/handler"
)

const namespace = "dirserve"

// Metrics holds the server metrics. Each instance has its own registry, so
// that multiple servers can run in the same process.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram
	responseBytes   prometheus.Counter
	responsesTotal  *prometheus.CounterVec
}

// New returns a new Metrics instance with all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by response code",
			},
			[]string{"code"},
		),
		requestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		responseBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_response_bytes_total",
				Help:      "Total bytes written in HTTP response bodies",
			},
		),
		responsesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "responses_total",
				Help:      "Total number of responses by kind",
			},
			[]string{"kind"},
		),
	}
}

// RecordRequest records the outcome of a single HTTP request.
func (m *Metrics) RecordRequest(code int, duration time.Duration, written int64) {
	m.requestsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
	m.requestDuration.Observe(duration.Seconds())
	m.responseBytes.Add(float64(written))
}

// ObserveResponse implements handler.Observer.
func (m *Metrics) ObserveResponse(kind handler.ResponseKind) {
	m.responsesTotal.WithLabelValues(string(kind)).Inc()
}

// Handler returns the HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
