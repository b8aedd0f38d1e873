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
	// Scan metrics
	CandidatesScanned prometheus.Counter
	FunnelRejections  *prometheus.CounterVec
	WatchVerdicts     prometheus.Counter
	ScanCycleDuration prometheus.Histogram

	// Trading metrics
	TradesOpened  prometheus.Counter
	TradesClosed  *prometheus.CounterVec
	PartialSells  *prometheus.CounterVec
	OpenPositions prometheus.Gauge
	CapitalUSD    prometheus.Gauge

	// Collaborator metrics
	CollaboratorLatency *prometheus.HistogramVec
	CollaboratorErrors  *prometheus.CounterVec

	// Feed metrics
	FeedEventsReceived prometheus.Counter
	FeedEventsDropped  prometheus.Counter
	FeedReconnects     prometheus.Counter

	// Health metrics
	LastScanTimestamp prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_scout"
	}

	return &Metrics{
		// Scan metrics
		CandidatesScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "candidates_total",
			Help:      "Total number of candidates pushed through the funnel",
		}),
		FunnelRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "funnel_rejections_total",
			Help:      "Total number of funnel rejections by terminal stage",
		}, []string{"stage"}),
		WatchVerdicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "watch_verdicts_total",
			Help:      "Total number of candidates that passed the full funnel",
		}),
		ScanCycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "cycle_duration_seconds",
			Help:      "Scan cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		// Trading metrics
		TradesOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_opened_total",
			Help:      "Total number of simulated positions opened",
		}),
		TradesClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_closed_total",
			Help:      "Total number of positions fully closed by exit kind",
		}, []string{"reason"}),
		PartialSells: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "partial_sells_total",
			Help:      "Total number of partial sells by trigger kind",
		}, []string{"trigger"}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "open_positions",
			Help:      "Current number of open positions",
		}),
		CapitalUSD: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "capital_usd",
			Help:      "Current free capital in USD",
		}),

		// Collaborator metrics
		CollaboratorLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "collaborator",
			Name:      "request_latency_seconds",
			Help:      "Collaborator request latency in seconds by service",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
		CollaboratorErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collaborator",
			Name:      "request_errors_total",
			Help:      "Total number of collaborator request errors by service",
		}, []string{"service"}),

		// Feed metrics
		FeedEventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_received_total",
			Help:      "Total number of launch feed events received",
		}),
		FeedEventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_dropped_total",
			Help:      "Total number of launch feed events dropped on a full buffer",
		}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of launch feed reconnect attempts",
		}),

		// Health metrics
		LastScanTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_scan_timestamp",
			Help:      "Unix timestamp of the last completed scan cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCandidateScanned increments the candidates counter.
func RecordCandidateScanned() {
	DefaultMetrics.CandidatesScanned.Inc()
}

// RecordFunnelRejection counts a rejection against its terminal stage.
func RecordFunnelRejection(stage string) {
	DefaultMetrics.FunnelRejections.WithLabelValues(stage).Inc()
}

// RecordWatchVerdict increments the watch verdict counter.
func RecordWatchVerdict() {
	DefaultMetrics.WatchVerdicts.Inc()
}

// RecordScanCycle records one completed cycle.
func RecordScanCycle(seconds float64) {
	DefaultMetrics.ScanCycleDuration.Observe(seconds)
	DefaultMetrics.LastScanTimestamp.SetToCurrentTime()
}

// RecordTradeOpened increments the opened counter.
func RecordTradeOpened() {
	DefaultMetrics.TradesOpened.Inc()
}

// RecordTradeClosed counts a full close against its exit kind.
func RecordTradeClosed(reason string) {
	DefaultMetrics.TradesClosed.WithLabelValues(reason).Inc()
}

// RecordPartialSell counts a partial sell against its trigger kind.
func RecordPartialSell(trigger string) {
	DefaultMetrics.PartialSells.WithLabelValues(trigger).Inc()
}

// UpdatePortfolio refreshes the open-position and capital gauges.
func UpdatePortfolio(openPositions int, capitalUSD float64) {
	DefaultMetrics.OpenPositions.Set(float64(openPositions))
	DefaultMetrics.CapitalUSD.Set(capitalUSD)
}

// RecordCollaboratorRequest records latency and outcome for one
// collaborator call.
func RecordCollaboratorRequest(service string, seconds float64, err error) {
	DefaultMetrics.CollaboratorLatency.WithLabelValues(service).Observe(seconds)
	if err != nil {
		DefaultMetrics.CollaboratorErrors.WithLabelValues(service).Inc()
	}
}

// RecordFeedEvent increments the feed received counter.
func RecordFeedEvent() {
	DefaultMetrics.FeedEventsReceived.Inc()
}

// RecordFeedDrop increments the feed dropped counter.
func RecordFeedDrop() {
	DefaultMetrics.FeedEventsDropped.Inc()
}

// RecordFeedReconnect increments the feed reconnect counter.
func RecordFeedReconnect() {
	DefaultMetrics.FeedReconnects.Inc()
}
