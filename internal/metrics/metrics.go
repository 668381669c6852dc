package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transition outcomes.
const (
	OutcomeApplied = "applied"
	OutcomeRefused = "refused"
)

// Metrics provides observability for status changes and NIC decoding.
type Metrics struct {
	// Status change decisions by record kind and outcome
	Transitions *prometheus.CounterVec

	// NIC decodes by format (legacy, modern, unknown) and outcome
	NICDecodes *prometheus.CounterVec
}

// New registers the metrics on reg. Tests pass a fresh registry; binaries pass
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_status_transitions_total",
			Help: "Status change requests by record kind and outcome",
		}, []string{"kind", "outcome"}),

		NICDecodes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_nic_decodes_total",
			Help: "NIC decode attempts by format and outcome",
		}, []string{"format", "outcome"}),
	}
}

// IncrementTransition records a status change decision.
func (m *Metrics) IncrementTransition(kind, outcome string) {
	if m != nil {
		m.Transitions.WithLabelValues(kind, outcome).Inc()
	}
}

// IncrementNICDecode records a decode attempt.
func (m *Metrics) IncrementNICDecode(format, outcome string) {
	if m != nil {
		m.NICDecodes.WithLabelValues(format, outcome).Inc()
	}
}
