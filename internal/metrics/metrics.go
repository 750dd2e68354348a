// Package metrics exposes prometheus counters and gauges for the process:
// Store writes, sidequest limit-exceeded events, branch allocations, and
// GitBridge reconciliations. A single-process counter set is not the
// distributed coordination spec.md's Non-goals exclude, so it's carried
// as an ambient concern like logging.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	StoreWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aipm_store_writes_total",
		Help: "Total Store.Apply change-sets committed, by kind.",
	}, []string{"kind"})

	StoreWriteErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aipm_store_write_errors_total",
		Help: "Total Store.Apply failures, by error kind.",
	}, []string{"error_kind"})

	SidequestLimitExceeded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aipm_sidequest_limit_exceeded_total",
		Help: "Total times createSidequest was blocked by the per-task sidequest limit.",
	})

	BranchesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aipm_branches_created_total",
		Help: "Total work branches allocated by BranchManager.",
	})

	GitReconciliations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aipm_gitbridge_reconciliations_total",
		Help: "Total GitBridge reconciliation runs, by outcome strategy.",
	}, []string{"strategy"})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aipm_active_sessions",
		Help: "Number of sessions currently active.",
	})
)

// Registry is the process's prometheus registry; Server mounts it at
// /metrics in HTTP mode rather than using the global default registry, so
// tests can construct independent Servers without metric collisions.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(StoreWrites, StoreWriteErrors, SidequestLimitExceeded, BranchesCreated, GitReconciliations, ActiveSessions)
}
