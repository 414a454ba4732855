// Package metrics exposes Prometheus metrics for pipeline dispatch.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tjfontaine/nextware/internal/pipeline"
)

// Metrics holds the dispatch collectors and the registry they live in.
type Metrics struct {
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	inFlight         *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates a Metrics instance on its own registry, so several servers in
// one process (or one test binary) do not collide.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		dispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nextware_dispatch_total",
				Help: "Requests dispatched through a pipeline, by outcome",
			},
			[]string{"app", "outcome"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nextware_dispatch_duration_seconds",
				Help:    "Time from dispatch start until the request settled",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"app", "outcome"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nextware_dispatch_in_flight",
				Help: "Requests currently being dispatched",
			},
			[]string{"app"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.dispatchTotal,
		m.dispatchDuration,
		m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Record counts one settled request.
func (m *Metrics) Record(app string, o pipeline.Outcome, elapsed time.Duration) {
	outcome := o.Status.String()
	m.dispatchTotal.WithLabelValues(app, outcome).Inc()
	m.dispatchDuration.WithLabelValues(app, outcome).Observe(elapsed.Seconds())
}

// Observer returns a pipeline observer recording under the given app label.
func (m *Metrics) Observer(app string) pipeline.Observer {
	return func(r *http.Request, o pipeline.Outcome, code int, elapsed time.Duration) {
		m.Record(app, o, elapsed)
	}
}

// InFlight wraps next so the in-flight gauge tracks requests it serves.
func (m *Metrics) InFlight(app string) func(http.Handler) http.Handler {
	g := m.inFlight.WithLabelValues(app)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.Inc()
			defer g.Dec()
			next.ServeHTTP(w, r)
		})
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
