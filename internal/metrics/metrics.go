// Package metrics provides Prometheus metrics for the bank tracker.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bank_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bank_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Snapshot Pass Metrics
	SnapshotPassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bank_snapshot_passes_total",
			Help: "Snapshot passes by kind and outcome",
		},
		[]string{"kind", "result"}, // kind: "import", "reprice"; result: "success", "rejected", "failed"
	)

	SnapshotPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bank_snapshot_pass_duration_seconds",
			Help:    "Time taken to price and persist one bank",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	SnapshotsWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bank_snapshots_written_total",
			Help: "Total number of price snapshots persisted",
		},
	)

	ItemsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bank_items_skipped_total",
			Help: "Items left without a snapshot during a pass",
		},
		[]string{"reason"}, // "untradeable", "missing_market"
	)

	InventoryLinesMalformedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bank_inventory_lines_malformed_total",
			Help: "Inventory dump lines dropped by the parser",
		},
	)

	// Price Feed Metrics
	PriceFeedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bank_price_feed_requests_total",
			Help: "Price feed requests by result",
		},
		[]string{"result"}, // "success", "network", "status", "parse", "empty", "rate_limited"
	)

	PriceFeedLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bank_price_feed_latency_seconds",
			Help:    "Price feed call latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	PriceCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bank_price_cache_hits_total",
			Help: "Price table served from cache",
		},
	)

	PriceCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bank_price_cache_misses_total",
			Help: "Price table cache misses that triggered a fetch",
		},
	)

	PriceCacheAgeSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bank_price_cache_age_seconds",
			Help: "Age of the price table at the last lookup",
		},
	)

	// Bank Metrics
	BanksTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bank_banks_total",
			Help: "Number of stored banks",
		},
	)

	BankValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bank_value_coins",
			Help: "Latest bank valuation in coins",
		},
		[]string{"bank", "estimate"}, // estimate: "low", "mean", "high"
	)
)
