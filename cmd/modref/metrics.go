package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the prometheus instruments and the registry they live
// in. A dedicated registry keeps test servers from fighting over the
// global one.
type Metrics struct {
	registry *prometheus.Registry

	DocsRequests   *prometheus.CounterVec
	BuildDuration  prometheus.Histogram
	RenderDuration prometheus.Histogram
	BuildPages     prometheus.Gauge
	SearchQueries  prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		DocsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modref",
			Name:      "docs_requests_total",
			Help:      "Requests served by the docs server, by status code.",
		}, []string{"code"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "modref",
			Name:      "build_duration_seconds",
			Help:      "Wall time of full site builds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "modref",
			Name:      "page_render_duration_seconds",
			Help:      "Render time of individual pages and module pages.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		BuildPages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "modref",
			Name:      "build_pages",
			Help:      "Pages rendered by the most recent build.",
		}),
		SearchQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modref",
			Name:      "search_queries_total",
			Help:      "Search queries handled by the API.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.DocsRequests,
		m.BuildDuration,
		m.RenderDuration,
		m.BuildPages,
		m.SearchQueries,
	)
	return m
}

// Handler returns the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
