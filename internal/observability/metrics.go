// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	IntentsReceived prometheus.Counter
	IntentsDropped  prometheus.Counter
	IntentsRejected *prometheus.CounterVec
	FeedReconnects  prometheus.Counter

	// Round metrics
	RoundsCompleted prometheus.Counter
	RoundsFailed    prometheus.Counter
	BidsSubmitted   prometheus.Counter
	BidOutcomes     *prometheus.CounterVec

	// Execution metrics
	TradesExecuted *prometheus.CounterVec
	ExtractedValue prometheus.Counter
	GasBurned      prometheus.Counter
	VictimLossBps  prometheus.Histogram

	// Pool metrics
	PoolPrice    prometheus.Gauge
	PoolReserve0 prometheus.Gauge
	PoolReserve1 prometheus.Gauge
	CurrentRound prometheus.Gauge

	// Latency metrics
	RoundDuration    prometheus.Histogram
	ChainCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastRoundCompleted prometheus.Gauge
	UptimeSeconds      prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mev_competition_lab"
	}

	return &Metrics{
		// Feed metrics
		IntentsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "intents_received_total",
			Help:      "Total number of trade intents received",
		}),
		IntentsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "intents_dropped_total",
			Help:      "Total number of intents dropped due to a full buffer",
		}),
		IntentsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "intents_rejected_total",
			Help:      "Total number of malformed intents rejected by reason",
		}, []string{"reason"}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of websocket reconnects",
		}),

		// Round metrics
		RoundsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rounds",
			Name:      "completed_total",
			Help:      "Total number of rounds committed",
		}),
		RoundsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rounds",
			Name:      "failed_total",
			Help:      "Total number of rounds aborted with an error",
		}),
		BidsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rounds",
			Name:      "bids_submitted_total",
			Help:      "Total number of bids entered into auctions",
		}),
		BidOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rounds",
			Name:      "bid_outcomes_total",
			Help:      "Total number of settled bids by agent and outcome",
		}, []string{"agent_id", "outcome"}),

		// Execution metrics
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trades_total",
			Help:      "Total number of executed order items by kind and success",
		}, []string{"kind", "success"}),
		ExtractedValue: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "extracted_value_token0_total",
			Help:      "Cumulative agent profit extracted, in token0 units",
		}),
		GasBurned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "gas_burned_token0_total",
			Help:      "Cumulative gas spent on landed legs, in token0 units",
		}),
		VictimLossBps: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "victim_loss_bps",
			Help:      "Victim slippage per executed intent, in basis points",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
		}),

		// Pool metrics
		PoolPrice: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "price",
			Help:      "Current pool spot price (token1 per token0)",
		}),
		PoolReserve0: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "reserve0",
			Help:      "Current token0 reserve",
		}),
		PoolReserve1: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "reserve1",
			Help:      "Current token1 reserve",
		}),
		CurrentRound: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "current_round",
			Help:      "Round number of the latest committed round",
		}),

		// Latency metrics
		RoundDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rounds",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of one round, in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ChainCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "call_latency_seconds",
			Help:      "Chain adapter call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastRoundCompleted: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_round_completed_timestamp",
			Help:      "Unix timestamp of the last committed round",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordIntentReceived increments the intents received counter.
func RecordIntentReceived() {
	DefaultMetrics.IntentsReceived.Inc()
}

// RecordIntentDropped increments the intents dropped counter.
func RecordIntentDropped() {
	DefaultMetrics.IntentsDropped.Inc()
}

// RecordIntentRejected records a malformed intent by rejection reason.
func RecordIntentRejected(reason string) {
	DefaultMetrics.IntentsRejected.WithLabelValues(reason).Inc()
}

// RecordFeedReconnect increments the websocket reconnect counter.
func RecordFeedReconnect() {
	DefaultMetrics.FeedReconnects.Inc()
}

// RecordRoundCompleted records a committed round and its duration.
func RecordRoundCompleted(round int64, seconds float64, completedAtUnix int64) {
	DefaultMetrics.RoundsCompleted.Inc()
	DefaultMetrics.RoundDuration.Observe(seconds)
	DefaultMetrics.CurrentRound.Set(float64(round))
	DefaultMetrics.LastRoundCompleted.Set(float64(completedAtUnix))
}

// RecordRoundFailed increments the failed rounds counter.
func RecordRoundFailed() {
	DefaultMetrics.RoundsFailed.Inc()
}

// RecordBidOutcome records one settled bid.
func RecordBidOutcome(agentID, outcome string) {
	DefaultMetrics.BidsSubmitted.Inc()
	DefaultMetrics.BidOutcomes.WithLabelValues(agentID, outcome).Inc()
}

// RecordTrade records one executed order item.
func RecordTrade(kind string, success bool) {
	successLabel := "false"
	if success {
		successLabel = "true"
	}
	DefaultMetrics.TradesExecuted.WithLabelValues(kind, successLabel).Inc()
}

// RecordExtraction adds realized profit and gas to the run totals.
func RecordExtraction(profitToken0, gasToken0 float64) {
	if profitToken0 > 0 {
		DefaultMetrics.ExtractedValue.Add(profitToken0)
	}
	DefaultMetrics.GasBurned.Add(gasToken0)
}

// RecordVictimLoss records one victim fill's slippage.
func RecordVictimLoss(bps int64) {
	DefaultMetrics.VictimLossBps.Observe(float64(bps))
}

// UpdatePoolState updates the pool gauges from the latest snapshot.
func UpdatePoolState(price, reserve0, reserve1 float64) {
	DefaultMetrics.PoolPrice.Set(price)
	DefaultMetrics.PoolReserve0.Set(reserve0)
	DefaultMetrics.PoolReserve1.Set(reserve1)
}

// RecordChainCall records chain adapter call latency.
func RecordChainCall(method string, seconds float64) {
	DefaultMetrics.ChainCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
