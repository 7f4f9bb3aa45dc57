// Package metrics exposes Prometheus collectors for the live trading
// loop and the execution gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts decision cycles by outcome: "completed",
	// "skipped" (degraded data), "halted".
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quant_cycles_total",
		Help: "Decision cycles run, by outcome.",
	}, []string{"outcome"})

	// CycleDuration observes full decide-and-execute cycle latency.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quant_cycle_duration_seconds",
		Help:    "Duration of one decide-and-execute cycle.",
		Buckets: prometheus.DefBuckets,
	})

	// OrdersTotal counts gateway submissions by terminal status.
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quant_orders_total",
		Help: "Order submission attempts, by result status.",
	}, []string{"status"})

	// RejectionsTotal counts gate rejections by which gate failed.
	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quant_order_rejections_total",
		Help: "Orders rejected before submission, by gate.",
	}, []string{"gate"})

	// RiskHalted is 1 while the daily-loss circuit breaker is tripped.
	RiskHalted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quant_risk_halted",
		Help: "Whether the risk governor currently halts trading.",
	})

	// AccountValue is the last observed account value in quote terms.
	AccountValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quant_account_value",
		Help: "Last observed account value.",
	})
)
