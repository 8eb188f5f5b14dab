package metrics

import "github.com/prometheus/client_golang/prometheus"

// DependencyMetrics tracks retries and breaker state of external services.
// It satisfies resilience.Observer.
type DependencyMetrics struct {
	service string

	retriesTotal *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func newDependencyMetrics(service string, registerer prometheus.Registerer) *DependencyMetrics {
	retriesTotal := counterVec("dependency", "retries_total",
		"Total retried calls per external dependency.", "service", "dependency")
	breakerState := gaugeVec("dependency", "breaker_state",
		"Circuit breaker state per dependency: 0 closed, 1 half-open, 2 open.", "service", "dependency")
	registerer.MustRegister(retriesTotal, breakerState)

	return &DependencyMetrics{
		service:      service,
		retriesTotal: retriesTotal,
		breakerState: breakerState,
	}
}

func (m *DependencyMetrics) ObserveRetry(dependency string) {
	m.retriesTotal.WithLabelValues(m.service, dependency).Inc()
}

func (m *DependencyMetrics) ObserveBreakerState(dependency, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	m.breakerState.WithLabelValues(m.service, dependency).Set(v)
}
