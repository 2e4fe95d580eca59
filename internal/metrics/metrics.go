// Package metrics exposes the Prometheus collectors of glimpse.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Identification outcomes.
const (
	OutcomeSuccess       = "success"
	OutcomeConfiguration = "configuration_error"
	OutcomeHTTPError     = "http_error"
	OutcomeEmpty         = "empty_response"
	OutcomeMalformed     = "malformed_response"
	OutcomeTransport     = "transport_error"
	OutcomeSuperseded    = "superseded"
	OutcomeOther         = "error"
)

// Favourites operations.
const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpClear  = "clear"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	identifications  *prometheus.CounterVec
	identifyDuration prometheus.Histogram
	favourites       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.identifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glimpse",
		Name:      "identifications_total",
		Help:      "Identification requests by outcome",
	}, []string{"outcome"})
	m.identifyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "glimpse",
		Name:      "identify_duration_seconds",
		Help:      "Time spent waiting on the identification webhook",
		Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
	})
	m.favourites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glimpse",
		Name:      "favourites_mutations_total",
		Help:      "Favourites list changes by operation",
	}, []string{"op"})

	m.registry.MustRegister(
		m.identifications, m.identifyDuration, m.favourites,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveIdentification records one finished identification.
func (m *Metrics) ObserveIdentification(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.identifications.WithLabelValues(outcome).Inc()
	m.identifyDuration.Observe(took.Seconds())
}

// FavouriteChanged records one effective favourites mutation.
func (m *Metrics) FavouriteChanged(op string) {
	if m == nil {
		return
	}
	m.favourites.WithLabelValues(op).Inc()
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
