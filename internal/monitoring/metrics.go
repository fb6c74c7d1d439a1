package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TradesExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powertrader_trades_total",
			Help: "Total number of fills executed",
		},
		[]string{"coin", "side", "reason"},
	)

	TradePnLPct = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "powertrader_trade_pnl_pct",
			Help:    "Realized PnL percentage per closing trade",
			Buckets: prometheus.LinearBuckets(-50, 5, 30),
		},
		[]string{"coin"},
	)

	AccountValueUSD = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "powertrader_account_value_usd",
			Help: "Current total account value in USD",
		},
	)

	SignalLevel = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "powertrader_signal_level",
			Help: "Current long/short signal level (0-7)",
		},
		[]string{"coin", "side"},
	)

	DCACount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "powertrader_dca_count",
			Help: "Current DCA stage per held coin",
		},
		[]string{"coin"},
	)

	ExchangeLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "powertrader_exchange_latency_seconds",
			Help:    "Exchange API response latency",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"venue", "endpoint"},
	)

	TrainingPatternCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "powertrader_training_pattern_count",
			Help: "Number of patterns held in memory per coin/timeframe",
		},
		[]string{"coin", "timeframe"},
	)
)

// RecordTrade records a fill's count and, for closing trades, its PnL.
func RecordTrade(coin, side, reason string, pnlPct float64, isClose bool) {
	TradesExecuted.WithLabelValues(coin, side, reason).Inc()
	if isClose {
		TradePnLPct.WithLabelValues(coin).Observe(pnlPct)
	}
}
