// Package signal blends independent strategy signals into one
// directional trading decision with a confidence score.
package signal

import (
	"context"

	"github.com/rustyeddy/quant/market"
)

// Signal is one strategy's directional opinion for one evaluation
// cycle. Value is in [-1, 1], positive meaning bullish. Confidence is
// in [0, 1]; zero means "ignore me this cycle". Reason is advisory
// text for humans, never parsed.
type Signal struct {
	Strategy   string
	Value      float64
	Confidence float64
	Reason     string
}

// Combined is the weighted blend of all active signals for one cycle.
// Reasons holds one entry per contributing non-zero signal, in the
// order the signals were supplied.
type Combined struct {
	Value      float64
	Confidence float64
	Reasons    []string
}

// Side of an order derived from a combined signal value.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Producer is anything that can emit a Signal from a market view.
// Order of registration is the tie-break order for combined reasons.
type Producer interface {
	Name() string
	Enabled() bool
	Produce(ctx context.Context, view market.View) (Signal, error)
}
