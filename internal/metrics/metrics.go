// Package metrics exposes Prometheus collectors for the ledger core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExpensesCreated counts persisted expenses by split policy.
	ExpensesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tally_expenses_created_total",
		Help: "Expenses created, by split policy.",
	}, []string{"policy"})

	// BalanceComputations counts on-demand group balance recomputations.
	BalanceComputations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tally_balance_computations_total",
		Help: "Group balance recomputations served.",
	})

	// BalanceDuration observes how long one group recomputation takes.
	BalanceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tally_balance_computation_seconds",
		Help:    "Latency of one group balance recomputation.",
		Buckets: prometheus.DefBuckets,
	})

	// PaymentTransitions counts payment state transitions by action and
	// outcome.
	PaymentTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tally_payment_transitions_total",
		Help: "Payment state machine transitions, by action and result.",
	}, []string{"action", "result"})

	// AuditIssues counts drifted splits found by the auditor.
	AuditIssues = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tally_audit_issues_total",
		Help: "Drifted splits detected by the auditor.",
	})

	// AuditFixes counts splits repaired in place.
	AuditFixes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tally_audit_fixes_total",
		Help: "Drifted splits repaired in place.",
	})
)
