package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dms_scans_total",
		Help: "Level scans executed, by game and level",
	}, []string{"game", "level"})

	ScanErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dms_scan_errors_total",
		Help: "Scans that failed and degraded to an empty result",
	})

	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dms_cache_hits_total",
		Help: "Scan results served from the TTL cache",
	})

	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dms_cache_misses_total",
		Help: "Scan cache lookups that went to the network",
	})

	OpportunitiesFound = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dms_opportunities_total",
		Help: "Opportunities that passed every gate, by level",
	}, []string{"level"})

	ScanLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dms_scan_latency_seconds",
		Help:    "Wall time of one uncached level scan",
		Buckets: prometheus.DefBuckets,
	})

	TradesExecuted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dms_trades_executed_total",
		Help: "Successful purchases made by the auto-trade sequencer",
	})

	TradeProfit = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dms_trade_profit_usd",
		Help: "Cumulative expected profit of executed trades (USD)",
	})
)

func init() {
	prometheus.MustRegister(
		ScansTotal,
		ScanErrors,
		CacheHits,
		CacheMisses,
		OpportunitiesFound,
		ScanLatency,
		TradesExecuted,
		TradeProfit,
	)
}
