// Package indicators provides the technical analysis building blocks
// the signal producers are written against.
package indicators

import (
	"errors"

	"github.com/rustyeddy/quant/market"
)

// ErrInsufficientHistory is returned when a calculation is asked for
// more lookback than the supplied candles can provide.
var ErrInsufficientHistory = errors.New("indicators: insufficient history")

// Indicator computes a single streaming value from closed candles.
// It is deterministic and safe to use in live, replay, and backtests.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "RSI(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be
	// true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed candle.
	Update(c market.Candle)

	// Ready reports whether Value() is meaningful.
	Ready() bool

	// Value returns the current indicator value; callers should always
	// check Ready() first.
	Value() float64
}
