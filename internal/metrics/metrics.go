// Package metrics holds the Prometheus collectors for collection, scoring
// and alerting.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "seedradar"

// Metrics holds all collectors. Each instance owns its registry so tests can
// build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	PreviewsCollected *prometheus.CounterVec
	ProviderErrors    *prometheus.CounterVec
	PreviewsScored    *prometheus.CounterVec
	ScoreErrors       prometheus.Counter
	Scores            *prometheus.HistogramVec
	ScoringDuration   prometheus.Histogram
	AlertsSent        *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PreviewsCollected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "previews_collected_total",
			Help:      "Previews normalized and stored, by platform",
		}, []string{"platform"}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "provider_errors_total",
			Help:      "Failed provider searches, by platform",
		}, []string{"platform"}),
		PreviewsScored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "previews_scored_total",
			Help:      "Previews scored, by platform and decision",
		}, []string{"platform", "decision"}),
		ScoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "score_errors_total",
			Help:      "Previews that could not be scored",
		}),
		Scores: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "relevance_score",
			Help:      "Distribution of 0-100 relevance scores, by platform",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}, []string{"platform"}),
		ScoringDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "scoring_batch_duration_seconds",
			Help:      "Wall time of one scoring batch",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		AlertsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "alerts_sent_total",
			Help:      "Alert deliveries, by notifier and status",
		}, []string{"notifier", "status"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "API requests, by method, route and status",
		}, []string{"method", "route", "status"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAlert counts one alert delivery. It matches alert.Observer.
func (m *Metrics) ObserveAlert(notifier string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.AlertsSent.WithLabelValues(notifier, status).Inc()
}
