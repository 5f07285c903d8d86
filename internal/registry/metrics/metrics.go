package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the plugin registry.
type Metrics struct {
	Rebuilds        prometheus.Counter
	PersistFailures prometheus.Counter
}

// New creates a new Metrics instance with all registry metrics registered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Rebuilds: factory.NewCounter(prometheus.CounterOpts{
			Name: "certgate_registry_rebuilds_total",
			Help: "Total number of registry store rebuilds",
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "certgate_registry_persist_failures_total",
			Help: "Total number of registry store writes that failed (memory stays authoritative)",
		}),
	}
}

// IncrementRebuilds records a store rebuild attempt.
func (m *Metrics) IncrementRebuilds() {
	m.Rebuilds.Inc()
}

// IncrementPersistFailures records a failed store write.
func (m *Metrics) IncrementPersistFailures() {
	m.PersistFailures.Inc()
}
