// Package metrics exposes Prometheus collectors for the ingestion worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the worker's Prometheus collectors. One instance is built at
// startup and shared by the scheduler and orchestrator.
type Metrics struct {
	DocumentsProcessed *prometheus.CounterVec
	ClaimsAttempted    *prometheus.CounterVec
	VisionCalls        prometheus.Counter
	PipelineDuration   prometheus.Histogram
	ChunksPersisted    prometheus.Counter
}

// New registers all collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocumentsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indexa_documents_processed_total",
			Help: "Documents run to a terminal status, by outcome.",
		}, []string{"outcome"}),
		ClaimsAttempted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indexa_claims_total",
			Help: "Claim attempts, by result (won, lost).",
		}, []string{"result"}),
		VisionCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indexa_vision_calls_total",
			Help: "Vision oracle invocations across all documents.",
		}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "indexa_pipeline_duration_seconds",
			Help:    "End-to-end processing duration per document.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		ChunksPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indexa_chunks_persisted_total",
			Help: "Chunk rows written to the store.",
		}),
	}
	reg.MustRegister(
		m.DocumentsProcessed,
		m.ClaimsAttempted,
		m.VisionCalls,
		m.PipelineDuration,
		m.ChunksPersisted,
	)
	return m
}

// NewUnregistered returns collectors without registering them, for tests.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
