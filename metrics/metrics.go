// Package metrics exposes Prometheus collectors for transaction building,
// broadcasting and watch subscriptions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "libcash"

var (
	// Transactions built, by kind: send, send_max, token_send, genesis, mint.
	txBuiltTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_built_total",
			Help:      "Total number of signed transactions assembled",
		},
		[]string{"kind"},
	)

	broadcastTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_total",
			Help:      "Total number of broadcast attempts",
		},
		[]string{"status"}, // accepted, rejected, error
	)

	feeRounds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fee_rounds",
			Help:      "Selection and fee estimation rounds per funding plan",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		},
	)

	selectionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_failures_total",
			Help:      "Coin selections that could not cover their target",
		},
		[]string{"asset"}, // base, token
	)

	watchActiveSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watch_active_subscriptions",
			Help:      "Number of active watch subscriptions",
		},
	)
)

// Broadcast statuses.
const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusError    = "error"
)

// TxBuilt counts an assembled transaction.
func TxBuilt(kind string) {
	txBuiltTotal.WithLabelValues(kind).Inc()
}

// Broadcast counts a broadcast attempt.
func Broadcast(status string) {
	broadcastTotal.WithLabelValues(status).Inc()
}

// FeeRounds records how many rounds a plan took to converge.
func FeeRounds(n int) {
	feeRounds.Observe(float64(n))
}

// SelectionFailure counts a selection shortfall for asset "base" or "token".
func SelectionFailure(asset string) {
	selectionFailuresTotal.WithLabelValues(asset).Inc()
}

// SubscriptionOpened increments the active subscription gauge.
func SubscriptionOpened() { watchActiveSubscriptions.Inc() }

// SubscriptionClosed decrements the active subscription gauge.
func SubscriptionClosed() { watchActiveSubscriptions.Dec() }
