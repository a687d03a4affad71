// Package metrics holds the Prometheus instruments for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	PolicyDecisions   *prometheus.CounterVec
	CodeRedemptions   *prometheus.CounterVec
	EscalationDenials prometheus.Counter
	AuditFailures     prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		PolicyDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_policy_decisions_total",
			Help: "Policy evaluator decisions by resource, operation and outcome",
		}, []string{"resource", "operation", "outcome"}),
		CodeRedemptions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_code_redemptions_total",
			Help: "Enrollment-code redemption attempts by outcome",
		}, []string{"outcome"}),
		EscalationDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agora_escalation_denials_total",
			Help: "Tier mutations rejected by the escalation guard",
		}),
		AuditFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agora_audit_failures_total",
			Help: "Audit events that failed to persist",
		}),
	}
}

// IncrementDecisions counts one policy decision.
func (m *Metrics) IncrementDecisions(resource, operation, outcome string) {
	m.PolicyDecisions.WithLabelValues(resource, operation, outcome).Inc()
}

// IncrementCodeRedemptions counts one redemption attempt.
func (m *Metrics) IncrementCodeRedemptions(outcome string) {
	m.CodeRedemptions.WithLabelValues(outcome).Inc()
}

// IncrementEscalationDenials counts one guard rejection.
func (m *Metrics) IncrementEscalationDenials() {
	m.EscalationDenials.Inc()
}

// IncrementAuditFailures counts one lost audit event.
func (m *Metrics) IncrementAuditFailures() {
	m.AuditFailures.Inc()
}
