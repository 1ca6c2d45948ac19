// Package metrics exposes Prometheus counters for the question-answering pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gistify"

// Metrics owns a private registry so multiple pipelines can run side by side in tests.
// All recording methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	generationCalls *prometheus.CounterVec
	gateRejections  *prometheus.CounterVec
	exhaustedRuns   *prometheus.CounterVec
	retrievals      *prometheus.CounterVec
	pointDefaults   *prometheus.CounterVec
	fillerWords     prometheus.Counter
	indexedChunks   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generationCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_calls_total",
			Help:      "Generator invocations by mode and outcome.",
		}, []string{"mode", "outcome"}),
		gateRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_rejections_total",
			Help:      "Generated texts rejected by a relevance gate.",
		}, []string{"gate"}),
		exhaustedRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exhausted_runs_total",
			Help:      "Runs that returned unvalidated text after using every attempt.",
		}, []string{"task"}),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Retrievals by path taken.",
		}, []string{"path"}),
		pointDefaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "point_defaults_total",
			Help:      "Default bullet points substituted for missing ones.",
		}, []string{"polarity"}),
		fillerWords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_filler_words_total",
			Help:      "Filler words appended to reach the summary length floor.",
		}),
		indexedChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexed_chunks_total",
			Help:      "Chunks written to the vector store.",
		}),
	}

	m.registry.MustRegister(
		m.generationCalls,
		m.gateRejections,
		m.exhaustedRuns,
		m.retrievals,
		m.pointDefaults,
		m.fillerWords,
		m.indexedChunks,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) GenerationCall(mode, outcome string) {
	if m == nil {
		return
	}
	m.generationCalls.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) GateRejected(gate string) {
	if m == nil {
		return
	}
	m.gateRejections.WithLabelValues(gate).Inc()
}

func (m *Metrics) Exhausted(task string) {
	if m == nil {
		return
	}
	m.exhaustedRuns.WithLabelValues(task).Inc()
}

func (m *Metrics) Retrieval(path string) {
	if m == nil {
		return
	}
	m.retrievals.WithLabelValues(path).Inc()
}

func (m *Metrics) PointDefaulted(polarity string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pointDefaults.WithLabelValues(polarity).Add(float64(n))
}

func (m *Metrics) FillerAppended(words int) {
	if m == nil || words <= 0 {
		return
	}
	m.fillerWords.Add(float64(words))
}

func (m *Metrics) ChunksIndexed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.indexedChunks.Add(float64(n))
}
