package metrics

import "github.com/prometheus/client_golang/prometheus"

// RetrievalMetrics records search pipeline outcomes. It satisfies
// ports.RetrievalObserver.
type RetrievalMetrics struct {
	service string

	searches  *prometheus.CounterVec
	retrieved *prometheus.HistogramVec
	degraded  *prometheus.CounterVec
	noContext *prometheus.CounterVec
}

func newRetrievalMetrics(service string, registerer prometheus.Registerer) *RetrievalMetrics {
	m := &RetrievalMetrics{
		service: service,
		searches: counterVec("retrieval", "search_total",
			"Total searches by detected intent.", "service", "intent"),
		retrieved: histogramVec("retrieval", "retrieved_chunks",
			"Distribution of chunks returned per search.",
			[]float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 50}, "service"),
		degraded: counterVec("retrieval", "stage_degraded_total",
			"Total searches where an optional stage was skipped after a failure.", "service", "stage"),
		noContext: counterVec("retrieval", "no_context_total",
			"Total answer requests without retrieved context.", "service"),
	}
	registerer.MustRegister(m.searches, m.retrieved, m.degraded, m.noContext)
	return m
}

func (m *RetrievalMetrics) ObserveSearch(intent string, results int) {
	if intent == "" {
		intent = "none"
	}
	m.searches.WithLabelValues(m.service, intent).Inc()
	m.retrieved.WithLabelValues(m.service).Observe(float64(results))
}

func (m *RetrievalMetrics) ObserveStageDegraded(stage string) {
	if stage == "" {
		stage = "unknown"
	}
	m.degraded.WithLabelValues(m.service, stage).Inc()
}

func (m *RetrievalMetrics) ObserveNoContext() {
	m.noContext.WithLabelValues(m.service).Inc()
}
