package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gkb"

// ─── Ledger ─────────────────────────────────────────────────────────────────

// LedgerTransactions counts committed transactions by kind ("add" / "deduct").
var LedgerTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "transactions_total",
	Help:      "Total committed ledger transactions.",
}, []string{"kind"})

// LedgerAmount sums committed amounts by kind, in coins.
var LedgerAmount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "amount_total",
	Help:      "Total coins moved by committed transactions.",
}, []string{"kind"})

// LedgerBalance reports the current balance in coins.
var LedgerBalance = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "balance",
	Help:      "Current balance in coins.",
})

// DebitsRejected counts debits refused for insufficient funds.
var DebitsRejected = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "debits_rejected_total",
	Help:      "Total debits refused because the balance was too low.",
})

// PersistFailures counts best-effort store writes that failed.
var PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "persist_failures_total",
	Help:      "Total failed write-through attempts to the key-value store.",
})

// ─── Hold gesture ───────────────────────────────────────────────────────────

// HoldCommits counts holds that reached 100% by flow.
var HoldCommits = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "hold",
	Name:      "commits_total",
	Help:      "Total hold gestures that reached completion.",
}, []string{"flow"})

// HoldReleases counts holds released (or invalidated) before completion.
var HoldReleases = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "hold",
	Name:      "releases_total",
	Help:      "Total hold gestures abandoned before completion.",
})

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
