// Package metrics exposes Prometheus instrumentation for query execution and
// entity creation.
//
// Metrics live on a private registry so tests can build independent
// instances. Handler serves that registry together with the Go runtime and
// process collectors.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/phrazzld/shelf-api/internal/events"
	"github.com/phrazzld/shelf-api/internal/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shelf"

// Metrics holds the service's collectors.
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts executed requests.
	// Labels: operation (query, mutation), outcome (ok, partial, rejected, timeout)
	RequestsTotal *prometheus.CounterVec

	// RequestDuration measures end-to-end execution time.
	// Labels: operation
	RequestDuration *prometheus.HistogramVec

	// FieldErrorsTotal counts field-level resolution failures.
	// Labels: code
	FieldErrorsTotal *prometheus.CounterVec

	// EntitiesCreatedTotal counts successful mutations.
	// Labels: kind (Author, Book)
	EntitiesCreatedTotal *prometheus.CounterVec
}

// Ensure Metrics can observe the executor and handle creation events
var (
	_ query.Observer      = (*Metrics)(nil)
	_ events.EventHandler = (*Metrics)(nil)
)

// New creates a Metrics instance registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total number of executed requests by operation and outcome",
		}, []string{"operation", "outcome"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Request execution time in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"operation"}),
		FieldErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "field_errors_total",
			Help:      "Total number of field resolution errors by code",
		}, []string{"code"}),
		EntitiesCreatedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalogue",
			Name:      "entities_created_total",
			Help:      "Total number of created entities by kind",
		}, []string{"kind"}),
	}
}

// ObserveRequest implements query.Observer.
func (m *Metrics) ObserveRequest(op query.OperationType, outcome query.Outcome, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(string(op), string(outcome)).Inc()
	m.RequestDuration.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}

// ObserveFieldError implements query.Observer.
func (m *Metrics) ObserveFieldError(code query.Code) {
	m.FieldErrorsTotal.WithLabelValues(string(code)).Inc()
}

// HandleEvent implements events.EventHandler.
func (m *Metrics) HandleEvent(_ context.Context, event *events.EntityCreated) error {
	m.EntitiesCreatedTotal.WithLabelValues(event.Kind.String()).Inc()
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
