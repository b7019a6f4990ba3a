// Package metrics exposes prometheus counters for the binding protocol.
// A nil *Metrics is valid and counts nothing, so unit tests can run without
// touching the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ProposalsCreated   prometheus.Counter
	ProposalsCancelled prometheus.Counter
	BindingsAccepted   prometheus.Counter
	AcceptRejected     *prometheus.CounterVec
}

// New creates and registers the binding counters on the default registry.
func New() *Metrics {
	return &Metrics{
		ProposalsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bindery_proposals_created_total",
			Help: "Total number of binding proposals created (including overwrites)",
		}),
		ProposalsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bindery_proposals_cancelled_total",
			Help: "Total number of binding proposals cancelled by their proposer",
		}),
		BindingsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bindery_bindings_accepted_total",
			Help: "Total number of bindings accepted by a manager",
		}),
		AcceptRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bindery_accept_rejected_total",
			Help: "Accept calls rejected before mutation, by precondition",
		}, []string{"reason"}),
	}
}

func (m *Metrics) IncProposalsCreated() {
	if m != nil {
		m.ProposalsCreated.Inc()
	}
}

func (m *Metrics) IncProposalsCancelled() {
	if m != nil {
		m.ProposalsCancelled.Inc()
	}
}

func (m *Metrics) IncBindingsAccepted() {
	if m != nil {
		m.BindingsAccepted.Inc()
	}
}

func (m *Metrics) IncAcceptRejected(reason string) {
	if m != nil {
		m.AcceptRejected.WithLabelValues(reason).Inc()
	}
}
