// Package metrics counts the failures that the RAG pipeline otherwise absorbs silently.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	EmbeddingFallbacks       *prometheus.CounterVec
	EmbeddingDimensionChange prometheus.Counter
	ClassificationFallbacks  prometheus.Counter
	GenerationDegraded       *prometheus.CounterVec
	RetryAttempts            *prometheus.CounterVec
	StorageErrors            *prometheus.CounterVec
	StoreRebuilds            prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		EmbeddingFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docqa_embedding_fallback_total",
			Help: "Embeddings replaced by a zero vector.",
		}, []string{"reason"}),
		EmbeddingDimensionChange: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docqa_embedding_dimension_changes_total",
			Help: "Successful embedding responses whose size differed from the latched dimension.",
		}),
		ClassificationFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docqa_classification_fallback_total",
			Help: "Classifier outputs that matched no category and defaulted to document QA.",
		}),
		GenerationDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docqa_generation_degraded_total",
			Help: "Generation calls answered with a fallback instead of model output.",
		}, []string{"call"}),
		RetryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docqa_retry_attempts_total",
			Help: "Retries issued against a backend.",
		}, []string{"client"}),
		StorageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docqa_storage_errors_total",
			Help: "Vector store operations that failed.",
		}, []string{"op"}),
		StoreRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docqa_store_rebuilds_total",
			Help: "Sweeps that had to destroy and recreate the whole store.",
		}),
	}
	reg.MustRegister(
		m.EmbeddingFallbacks,
		m.EmbeddingDimensionChange,
		m.ClassificationFallbacks,
		m.GenerationDegraded,
		m.RetryAttempts,
		m.StorageErrors,
		m.StoreRebuilds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// The helpers below accept a nil receiver so components can run without metrics in tests.

func (m *Metrics) EmbeddingFallback(reason string) {
	if m != nil {
		m.EmbeddingFallbacks.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) DimensionChanged() {
	if m != nil {
		m.EmbeddingDimensionChange.Inc()
	}
}

func (m *Metrics) ClassificationFallback() {
	if m != nil {
		m.ClassificationFallbacks.Inc()
	}
}

func (m *Metrics) Degraded(call string) {
	if m != nil {
		m.GenerationDegraded.WithLabelValues(call).Inc()
	}
}

func (m *Metrics) Retry(client string) {
	if m != nil {
		m.RetryAttempts.WithLabelValues(client).Inc()
	}
}

func (m *Metrics) StorageError(op string) {
	if m != nil {
		m.StorageErrors.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) Rebuilt() {
	if m != nil {
		m.StoreRebuilds.Inc()
	}
}
