package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"SignalHunter/internal/model"
)

var (
	SignalsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hunter_signals_fired_total",
			Help: "Daily signals observed by the scheduled check, by tier.",
		},
		[]string{"tier"},
	)

	LedgerOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hunter_ledger_operations_total",
			Help: "Ledger mutations by operation and result.",
		},
		[]string{"op", "result"},
	)

	FetchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hunter_fetch_failures_total",
			Help: "Price fetch attempts that failed.",
		},
	)

	BucketBalance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hunter_bucket_balance",
			Help: "Current cash balance per bucket.",
		},
		[]string{"bucket"},
	)
)

func init() {
	prometheus.MustRegister(SignalsFired, LedgerOps, FetchFailures, BucketBalance)
}

// ObserveWallet publishes both bucket balances.
func ObserveWallet(w model.Wallet) {
	BucketBalance.WithLabelValues(string(model.BucketHunter)).Set(w.HunterCash)
	BucketBalance.WithLabelValues(string(model.BucketBlitz)).Set(w.BlitzCash)
}

// ObserveSignal counts the tiers of one daily signal.
func ObserveSignal(sig model.TierSignal) {
	if sig.Group != model.TierNone {
		SignalsFired.WithLabelValues(sig.Group.String()).Inc()
	}
	if sig.Blitz {
		SignalsFired.WithLabelValues(model.TierBlitz.String()).Inc()
	}
}

// ObserveLedgerOp counts a ledger operation outcome.
func ObserveLedgerOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	LedgerOps.WithLabelValues(op, result).Inc()
}
