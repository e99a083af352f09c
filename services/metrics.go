package services

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values shared by the offer and order recipes.
const (
	entityOffer = "offer"
	entityOrder = "order"

	recipeCreation     = "creation"
	recipeStatusUpdate = "status_update"
	recipeCompletion   = "completion"

	skipIndeterminate = "indeterminate"
	skipConfiguration = "configuration"
	skipStorage       = "storage"
	skipTransition    = "transition"
)

// MetricsService exposes reconciliation counters on a dedicated registry.
// All recording methods are nil-safe so services can run without metrics
// in tests.
type MetricsService struct {
	registry *prometheus.Registry

	batchesTotal    *prometheus.CounterVec
	recordsSelected *prometheus.CounterVec
	recordsResolved *prometheus.CounterVec
	recordsSkipped  *prometheus.CounterVec
}

// NewMetricsService creates the metrics service and registers its collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		batchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_batches_total",
			Help: "Number of reconciliation batches run, by entity and recipe.",
		}, []string{"entity", "recipe"}),
		recordsSelected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_records_selected_total",
			Help: "Number of records selected into reconciliation batches.",
		}, []string{"entity", "recipe"}),
		recordsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_records_resolved_total",
			Help: "Number of records whose transaction outcome was resolved, by outcome.",
		}, []string{"entity", "recipe", "outcome"}),
		recordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_records_skipped_total",
			Help: "Number of records left untouched by a batch, by reason.",
		}, []string{"entity", "recipe", "reason"}),
	}

	m.registry.MustRegister(
		m.batchesTotal,
		m.recordsSelected,
		m.recordsResolved,
		m.recordsSkipped,
	)

	return m
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// BatchStarted records a batch run and its working-set size.
func (m *MetricsService) BatchStarted(entity, recipe string, selected int) {
	if m == nil {
		return
	}
	m.batchesTotal.WithLabelValues(entity, recipe).Inc()
	m.recordsSelected.WithLabelValues(entity, recipe).Add(float64(selected))
}

// RecordResolved records a record whose on-chain outcome was determined.
func (m *MetricsService) RecordResolved(entity, recipe, outcome string) {
	if m == nil {
		return
	}
	m.recordsResolved.WithLabelValues(entity, recipe, outcome).Inc()
}

// RecordSkipped records a record a batch could not progress.
func (m *MetricsService) RecordSkipped(entity, recipe, reason string) {
	if m == nil {
		return
	}
	m.recordsSkipped.WithLabelValues(entity, recipe, reason).Inc()
}
