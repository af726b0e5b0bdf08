// Package metrics defines and registers all custom Prometheus metrics for the
// restaurant directory API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation and exposed on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "directory"

// ── Directory metrics ─────────────────────────────────────────────────────────

// SearchesTotal counts directory listings served.
// Label:
//   - outcome: filter transition applied to the session ("kept", "replaced", "cleared")
//     or "error" when the query failed
var SearchesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_total",
		Help:      "Total number of directory listings, by filter outcome.",
	},
	[]string{"outcome"},
)

// SearchResults observes the total match count of each directory listing.
var SearchResults = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_results",
		Help:      "Number of accounts matched by a directory listing.",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
	},
)

// ── Access control metrics ────────────────────────────────────────────────────

// RBACDenialsTotal counts requests turned away by the role gate.
// Label:
//   - route: the matched route path (e.g. "/v1/users")
var RBACDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rbac_denials_total",
		Help:      "Total number of requests denied by the role gate, by route.",
	},
	[]string{"route"},
)

// AccountChangesTotal counts administrative account mutations.
// Label:
//   - action: "update" or "delete"
var AccountChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "account_changes_total",
		Help:      "Total number of accounts updated or deleted by administrators.",
	},
	[]string{"action"},
)
