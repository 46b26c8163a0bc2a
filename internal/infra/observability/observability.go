// Package observability exposes the ledger's Prometheus metrics.
// Counters are package-level promauto collectors, registered on the
// default registry and served from /metrics when enabled in config.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// Transactions counts recorded ledger entries by kind and bucket.
var Transactions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "classbank",
	Subsystem: "ledger",
	Name:      "transactions_total",
	Help:      "Total ledger transactions recorded, by kind and bucket.",
}, []string{"kind", "bucket"})

// Allocations counts bucket allocations by mode.
var Allocations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "classbank",
	Subsystem: "ledger",
	Name:      "allocations_total",
	Help:      "Total balance allocations, by mode (auto or manual).",
}, []string{"mode"})

// ConflictRetries counts internal retries on version contention.
var ConflictRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "classbank",
	Subsystem: "ledger",
	Name:      "conflict_retries_total",
	Help:      "Total internal retries after optimistic concurrency conflicts.",
})

// ─── Goal Metrics ───────────────────────────────────────────────────────────

// GoalCompletions counts savings goals reached.
var GoalCompletions = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "classbank",
	Subsystem: "goals",
	Name:      "completions_total",
	Help:      "Total savings goals completed.",
})

// ─── Store Metrics ──────────────────────────────────────────────────────────

// Purchases counts successful store purchases.
var Purchases = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "classbank",
	Subsystem: "store",
	Name:      "purchases_total",
	Help:      "Total store purchases completed.",
})

// PurchaseRejections counts purchases rejected before any write, by reason.
var PurchaseRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "classbank",
	Subsystem: "store",
	Name:      "rejections_total",
	Help:      "Total store purchases rejected, by reason code.",
}, []string{"reason"})

// ─── Cycle Metrics ──────────────────────────────────────────────────────────

// CycleResets counts accounting cycle resets.
var CycleResets = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "classbank",
	Subsystem: "cycles",
	Name:      "resets_total",
	Help:      "Total accounting cycle resets.",
})

// ─── Reward Metrics ─────────────────────────────────────────────────────────

// Reviews counts task submission reviews by decision.
var Reviews = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "classbank",
	Subsystem: "rewards",
	Name:      "reviews_total",
	Help:      "Total task submission reviews, by decision.",
}, []string{"decision"})
