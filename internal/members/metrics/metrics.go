// Package metrics exposes group membership counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	additions     prometheus.Counter
	removals      prometheus.Counter
	roleConflicts prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		additions: factory.NewCounter(prometheus.CounterOpts{
			Name: "certgate_group_member_additions_total",
			Help: "Successful group member additions.",
		}),
		removals: factory.NewCounter(prometheus.CounterOpts{
			Name: "certgate_group_member_removals_total",
			Help: "Successful group member removals.",
		}),
		roleConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "certgate_group_member_role_conflicts_total",
			Help: "Additions rejected by single-role enforcement.",
		}),
	}
}

func (m *Metrics) IncrementAdditions() {
	m.additions.Inc()
}

func (m *Metrics) IncrementRemovals() {
	m.removals.Inc()
}

func (m *Metrics) IncrementRoleConflicts() {
	m.roleConflicts.Inc()
}
