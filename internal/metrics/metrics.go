package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "keepmark"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	bookmarks         *prometheus.CounterVec
	extractorFailures *prometheus.CounterVec
	tokenReloads      *prometheus.CounterVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		bookmarks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookmarks_total",
			Help:      "Bookmark mutations by operation.",
		}, []string{"op"}),
		extractorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "failures_total",
			Help:      "Metadata fetches that degraded to empty metadata, by reason.",
		}, []string{"reason"}),
		tokenReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "reloads_total",
			Help:      "Token file reloads by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.bookmarks,
		m.extractorFailures,
		m.tokenReloads,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, method, code string, d time.Duration) {
	m.requests.WithLabelValues(route, method, code).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) BookmarkCreated() { m.bookmarks.WithLabelValues("create").Inc() }

func (m *Metrics) BookmarkDeleted() { m.bookmarks.WithLabelValues("delete").Inc() }

// ExtractionFailed matches metadata.WithFailureHook.
func (m *Metrics) ExtractionFailed(reason string) {
	m.extractorFailures.WithLabelValues(reason).Inc()
}

// TokensReloaded matches scheduler.TokenReloader.OnReload.
func (m *Metrics) TokensReloaded(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.tokenReloads.WithLabelValues(result).Inc()
}
