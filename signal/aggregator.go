package signal

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultThreshold is the minimum combined signal magnitude that
	// can trigger a trade.
	DefaultThreshold = 0.3

	// minConfidence is the floor below which no trade fires no matter
	// how strong the blended value is. A strong-but-unreliable signal
	// is as unactionable as a weak-but-certain one.
	minConfidence = 0.2

	// baseRiskFraction is the equity fraction a neutral-conviction
	// trade puts at play before the signal factor scales it.
	baseRiskFraction = 0.01
)

// Aggregator combines producer signals using configured per-strategy
// weights. A strategy without a configured weight gets an equal 1/N
// split. The zero value is usable: all-default weights, default
// threshold.
type Aggregator struct {
	weights   map[string]float64
	threshold float64
}

// NewAggregator builds an aggregator from a weight table keyed by
// strategy name. threshold <= 0 selects DefaultThreshold.
func NewAggregator(weights map[string]float64, threshold float64) *Aggregator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	w := make(map[string]float64, len(weights))
	for k, v := range weights {
		w[k] = v
	}
	return &Aggregator{weights: w, threshold: threshold}
}

// Threshold returns the configured trade threshold.
func (a *Aggregator) Threshold() float64 {
	if a.threshold <= 0 {
		return DefaultThreshold
	}
	return a.threshold
}

func (a *Aggregator) weight(strategy string, n int) float64 {
	if w, ok := a.weights[strategy]; ok {
		return w
	}
	if n == 0 {
		return 0
	}
	return 1.0 / float64(n)
}

// Combine blends the given signals into one decision. Signals with zero
// confidence contribute nothing. When no signal is confident the result
// is neutral: value 0, confidence 0.
func (a *Aggregator) Combine(signals []Signal) Combined {
	var (
		numerator   float64 // value * confidence * weight
		denominator float64 // confidence * weight
		confSum     float64 // confidence * weight
		reasons     []string
	)

	for _, s := range signals {
		if s.Confidence <= 0 {
			continue
		}
		w := a.weight(s.Strategy, len(signals))
		numerator += s.Value * s.Confidence * w
		denominator += s.Confidence * w
		confSum += s.Confidence * w

		if s.Value != 0 {
			reasons = append(reasons,
				fmt.Sprintf("%s: %s (confidence: %.2f)", s.Strategy, s.Reason, s.Confidence))
		}
	}

	if denominator <= 0 {
		return Combined{}
	}

	c := Combined{
		Value:      numerator / denominator,
		Confidence: clamp(confSum/denominator, 0, 1),
		Reasons:    reasons,
	}

	log.Debug().
		Float64("value", c.Value).
		Float64("confidence", c.Confidence).
		Int("signals", len(signals)).
		Msg("signals combined")

	return c
}

// ShouldTrade reports whether a combined signal clears both the
// magnitude threshold and the confidence floor.
func (a *Aggregator) ShouldTrade(c Combined) bool {
	return math.Abs(c.Value) >= a.Threshold() && c.Confidence >= minConfidence
}

// OrderSide maps a combined value to an order side. Zero maps to Sell;
// ShouldTrade filters near-zero signals out before this matters unless
// the threshold is configured to 0.
func OrderSide(value float64) Side {
	if value > 0 {
		return Buy
	}
	return Sell
}

// PositionSize converts conviction into base-asset units: 1% of equity
// scaled by a factor in [0.5, 3.0] that grows with signal magnitude.
// The result is bounded to [0.5%, 3%] of equity before any downstream
// risk clamp.
func PositionSize(value, accountValue, price float64) float64 {
	if price <= 0 {
		return 0
	}
	base := accountValue * baseRiskFraction
	factor := clamp(math.Abs(value)*2, 0.5, 3.0)
	return base * factor / price
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
