// Package metrics exposes render counters and timings to Prometheus. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clipforge"

// Render outcome labels.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Metrics holds the render collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	rendersTotal   *prometheus.CounterVec   // mode, status
	failuresTotal  *prometheus.CounterVec   // kind
	renderDuration *prometheus.HistogramVec // mode
	stageDuration  *prometheus.HistogramVec // stage
	inFlight       prometheus.Gauge
}

// New creates the collectors in a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rendersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Renders finished, by mode and status",
		}, []string{"mode", "status"}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_failures_total",
			Help:      "Failed renders by error kind",
		}, []string{"kind"}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Wall time of a whole render",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160, 320},
		}, []string{"mode"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of one render stage",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 9),
		}, []string{"stage"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "renders_in_flight",
			Help:      "Renders currently running",
		}),
	}
	m.registry.MustRegister(
		m.rendersTotal,
		m.failuresTotal,
		m.renderDuration,
		m.stageDuration,
		m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Started marks a render as running and returns a func that records its
// outcome. kind is the error class and is ignored on success.
func (m *Metrics) Started(mode string) func(err error, kind string) {
	if m == nil {
		return func(error, string) {}
	}
	start := time.Now()
	m.inFlight.Inc()
	return func(err error, kind string) {
		m.inFlight.Dec()
		m.renderDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
		if err != nil {
			m.rendersTotal.WithLabelValues(mode, StatusFailed).Inc()
			m.failuresTotal.WithLabelValues(kind).Inc()
			return
		}
		m.rendersTotal.WithLabelValues(mode, StatusOK).Inc()
	}
}

// ObserveStage records how long stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
