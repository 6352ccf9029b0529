package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments exposed by the gateway.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	StreamChunks     prometheus.Counter
	StreamErrors     prometheus.Counter
	EngineCallsTotal *prometheus.CounterVec
}

// NewMetrics creates the metrics registry and instruments (DI constructor).
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "howl_http_requests_total",
			Help: "HTTP requests by path and status code.",
		}, []string{"path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "howl_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds by path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		StreamChunks: factory.NewCounter(prometheus.CounterOpts{
			Name: "howl_stream_chunks_total",
			Help: "Completion chunks written to streaming responses.",
		}),
		StreamErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "howl_stream_errors_total",
			Help: "Streams terminated by an engine error event.",
		}),
		EngineCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "howl_engine_calls_total",
			Help: "Engine queries by outcome.",
		}, []string{"outcome"}),
	}
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
