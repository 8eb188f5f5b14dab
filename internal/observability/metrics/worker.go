package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

// WorkerMetrics instruments the chunking worker. It satisfies
// ports.ChunkingObserver.
type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	processed    *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	inFlight     *prometheus.GaugeVec
	queueLag     *prometheus.HistogramVec
	chunks       *prometheus.CounterVec
	contentTypes *prometheus.CounterVec
	chunksPerDoc *prometheus.HistogramVec

	dependencies *DependencyMetrics
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	m := &WorkerMetrics{
		registry: prometheus.NewRegistry(),
		service:  service,

		processed: counterVec("worker", "document_process_total",
			"Total processed documents by status.", "service", "status"),
		duration: histogramVec("worker", "document_process_duration_seconds",
			"Document processing duration in seconds by status.",
			[]float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}, "service", "status"),
		inFlight: gaugeVec("worker", "document_process_in_flight",
			"Number of in-flight document processing tasks.", "service"),
		queueLag: histogramVec("worker", "queue_lag_seconds",
			"Delay between document upload and processing start.",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600}, "service"),
		chunks: counterVec("worker", "chunks_total",
			"Total produced chunks by chunk type.", "service", "chunk_type"),
		contentTypes: counterVec("worker", "content_types_total",
			"Total chunked documents by resolved content type.", "service", "content_type"),
		chunksPerDoc: histogramVec("worker", "chunks_per_document",
			"Distribution of chunks produced per document.",
			[]float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000}, "service", "content_type"),
	}
	m.registry.MustRegister(m.processed, m.duration, m.inFlight, m.queueLag, m.chunks, m.contentTypes, m.chunksPerDoc)
	m.dependencies = newDependencyMetrics(service, m.registry)
	return m
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) Dependencies() *DependencyMetrics {
	return m.dependencies
}

func (m *WorkerMetrics) StartDocument() {
	m.inFlight.WithLabelValues(m.service).Inc()
}

// FinishDocument closes a StartDocument span.
func (m *WorkerMetrics) FinishDocument(duration time.Duration, err error) {
	m.inFlight.WithLabelValues(m.service).Dec()
	status := "success"
	if err != nil {
		status = "error"
	}
	m.processed.WithLabelValues(m.service, status).Inc()
	m.duration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag >= 0 {
		m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
	}
}

func (m *WorkerMetrics) ObserveChunked(contentType domain.ContentType, chunks []domain.HierarchicalChunk) {
	ct := string(contentType)
	if ct == "" {
		ct = "unknown"
	}
	m.contentTypes.WithLabelValues(m.service, ct).Inc()
	m.chunksPerDoc.WithLabelValues(m.service, ct).Observe(float64(len(chunks)))

	byType := make(map[domain.ChunkType]int)
	for _, chunk := range chunks {
		t := chunk.Metadata.ChunkType
		if t == "" {
			t = domain.ChunkOther
		}
		byType[t]++
	}
	for t, n := range byType {
		m.chunks.WithLabelValues(m.service, string(t)).Add(float64(n))
	}
}
