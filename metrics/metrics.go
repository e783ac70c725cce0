// Package metrics defines the Prometheus instrumentation for the catalyst
// pipeline: ingestion/classification throughput, signal generation, order
// execution, open-position P&L, the missed-opportunities analyzer, and LLM
// call latency. A custom registry (rather than the global default) keeps the
// process's metric surface to exactly what this module emits.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry is the custom prometheus registry for this module's metrics.
	Registry = prometheus.NewRegistry()

	mu sync.RWMutex

	// ============================================
	// Ingestion / classification
	// ============================================

	ItemsIngestedTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalyst",
			Subsystem: "classify",
			Name:      "items_ingested_total",
			Help:      "Total press-release items pulled from feeds",
		},
		[]string{"source"},
	)

	ItemsClassifiedTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalyst",
			Subsystem: "classify",
			Name:      "items_classified_total",
			Help:      "Total items that completed classification, by verdict",
		},
		[]string{"verdict"}, // "accept", "reject"
	)

	ClassificationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalyst",
			Subsystem: "classify",
			Name:      "duration_seconds",
			Help:      "Time to classify a single item end to end",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"source"},
	)

	// ============================================
	// Signal generation
	// ============================================

	SignalsGeneratedTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalyst",
			Subsystem: "signalgen",
			Name:      "signals_total",
			Help:      "Total trade signals generated, by action",
		},
		[]string{"action"}, // "buy", "sell", "avoid"
	)

	SignalConfidence = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "catalyst",
			Subsystem: "signalgen",
			Name:      "confidence",
			Help:      "Confidence score of generated signals",
			Buckets:   []float64{.1, .2, .3, .4, .5, .6, .7, .8, .9, 1.0},
		},
	)

	// ============================================
	// Order execution
	// ============================================

	OrdersSubmittedTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalyst",
			Subsystem: "executor",
			Name:      "orders_submitted_total",
			Help:      "Total orders submitted to the broker, by session and side",
		},
		[]string{"session", "side"}, // session: "regular", "extended"
	)

	OrdersRejectedTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalyst",
			Subsystem: "executor",
			Name:      "orders_rejected_total",
			Help:      "Total orders rejected by the broker or pre-trade checks",
		},
		[]string{"reason"},
	)

	OrderFillLatency = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "catalyst",
			Subsystem: "executor",
			Name:      "fill_latency_seconds",
			Help:      "Time from order submission to fill confirmation",
			Buckets:   []float64{.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// ============================================
	// Positions
	// ============================================

	OpenPositionsCount = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "catalyst",
			Subsystem: "position",
			Name:      "open_count",
			Help:      "Number of currently open positions",
		},
	)

	PositionUnrealizedPnL = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "catalyst",
			Subsystem: "position",
			Name:      "unrealized_pnl_usd",
			Help:      "Unrealized P&L per open position in USD",
		},
		[]string{"ticker"},
	)

	PositionsClosedTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalyst",
			Subsystem: "position",
			Name:      "closed_total",
			Help:      "Total positions closed, by exit reason",
		},
		[]string{"exit_reason"}, // "stop_loss", "take_profit", "max_hold"
	)

	// RealizedPnLTotal is a Gauge rather than a Counter: realized P&L is a
	// running sum of signed contributions (losses subtract), so it isn't
	// monotonically increasing.
	RealizedPnLTotal = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "catalyst",
			Subsystem: "position",
			Name:      "realized_pnl_usd_total",
			Help:      "Cumulative realized P&L in USD, summing signed contributions from every closed position",
		},
	)

	// ============================================
	// Missed-opportunities analyzer
	// ============================================

	MOARunsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalyst",
			Subsystem: "moa",
			Name:      "runs_total",
			Help:      "Total analyzer runs, by result status",
		},
		[]string{"status"}, // "success", "no_data", "no_opportunities", "no_keywords"
	)

	MOAMissedOpportunities = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "catalyst",
			Subsystem: "moa",
			Name:      "missed_opportunities",
			Help:      "Missed opportunities identified in the most recent analyzer run",
		},
	)

	MOARecommendationsPending = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "catalyst",
			Subsystem: "moa",
			Name:      "recommendations_pending",
			Help:      "Weight recommendations awaiting human approval",
		},
	)

	// ============================================
	// LLM client
	// ============================================

	LLMRequestDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "catalyst",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "LLM query latency",
			Buckets:   []float64{.5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
	)

	LLMRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalyst",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total LLM requests, by outcome",
		},
		[]string{"outcome"}, // "success", "failure", "circuit_open"
	)

	LLMCircuitState = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "catalyst",
			Subsystem: "llm",
			Name:      "circuit_open",
			Help:      "Whether the LLM circuit breaker is open (1) or closed (0)",
		},
	)

	// ============================================
	// System
	// ============================================

	SystemUptime = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "catalyst",
			Subsystem: "system",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds",
		},
	)

	KillSwitchEngaged = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "catalyst",
			Subsystem: "system",
			Name:      "kill_switch_engaged",
			Help:      "Whether the executor kill switch is currently engaged (1) or not (0)",
		},
	)
)

// RecordClassification records one item's classification outcome and
// latency.
func RecordClassification(source, verdict string, durationSeconds float64) {
	ItemsIngestedTotal.WithLabelValues(source).Inc()
	ItemsClassifiedTotal.WithLabelValues(verdict).Inc()
	ClassificationDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordSignal records a generated signal's action and confidence.
func RecordSignal(action string, confidence float64) {
	SignalsGeneratedTotal.WithLabelValues(action).Inc()
	SignalConfidence.Observe(confidence)
}

// RecordOrderSubmitted records a submitted order by trading session and side.
func RecordOrderSubmitted(session, side string) {
	OrdersSubmittedTotal.WithLabelValues(session, side).Inc()
}

// RecordOrderRejected records an order rejected before or by the broker.
func RecordOrderRejected(reason string) {
	OrdersRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordOrderFillLatency records the submit-to-fill latency of one order.
func RecordOrderFillLatency(durationSeconds float64) {
	OrderFillLatency.Observe(durationSeconds)
}

// SetPositionMetrics updates the open-position gauges for a single ticker.
func SetPositionMetrics(ticker string, unrealizedPnL float64) {
	mu.Lock()
	defer mu.Unlock()
	PositionUnrealizedPnL.WithLabelValues(ticker).Set(unrealizedPnL)
}

// ClearPositionMetrics removes a closed position's gauge series.
func ClearPositionMetrics(ticker string) {
	mu.Lock()
	defer mu.Unlock()
	PositionUnrealizedPnL.DeleteLabelValues(ticker)
}

// RecordPositionClosed records a closed position's exit reason and realized
// P&L.
func RecordPositionClosed(exitReason string, realizedPnL float64) {
	PositionsClosedTotal.WithLabelValues(exitReason).Inc()
	RealizedPnLTotal.Add(realizedPnL)
}

// SetOpenPositionsCount sets the current open-position count.
func SetOpenPositionsCount(count int) {
	OpenPositionsCount.Set(float64(count))
}

// RecordMOARun records an analyzer run's result status and, on success, its
// missed-opportunity and pending-recommendation counts.
func RecordMOARun(status string, missedOpportunities, recommendationsPending int) {
	MOARunsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		MOAMissedOpportunities.Set(float64(missedOpportunities))
		MOARecommendationsPending.Set(float64(recommendationsPending))
	}
}

// RecordLLMRequest records an LLM query's outcome and latency.
func RecordLLMRequest(outcome string, durationSeconds float64) {
	LLMRequestsTotal.WithLabelValues(outcome).Inc()
	LLMRequestDuration.Observe(durationSeconds)
}

// SetLLMCircuitOpen reflects the LLM client's circuit breaker state.
func SetLLMCircuitOpen(open bool) {
	val := 0.0
	if open {
		val = 1.0
	}
	LLMCircuitState.Set(val)
}

// SetKillSwitchEngaged reflects the executor kill switch state.
func SetKillSwitchEngaged(engaged bool) {
	val := 0.0
	if engaged {
		val = 1.0
	}
	KillSwitchEngaged.Set(val)
}

// SetUptime sets the process uptime gauge.
func SetUptime(seconds float64) {
	SystemUptime.Set(seconds)
}

// Init registers the standard Go/process collectors on the custom registry.
func Init() {
	Registry.MustRegister(prometheus.NewGoCollector())
	Registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}
