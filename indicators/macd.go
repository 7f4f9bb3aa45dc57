package indicators

import (
	"fmt"

	"github.com/rustyeddy/quant/market"
)

// MACDResult bundles the MACD line, its signal line and the histogram.
type MACDResult struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// MACD calculates the Moving Average Convergence Divergence by
// streaming the fast and slow EMAs over the series once, with an EMA of
// the MACD line as the signal line.
func MACD(closes []float64, fast, slow, signalPeriod int) (MACDResult, error) {
	if fast >= slow {
		return MACDResult{}, fmt.Errorf("macd: fast period %d must be below slow period %d", fast, slow)
	}
	if len(closes) < slow+signalPeriod {
		return MACDResult{}, fmt.Errorf("macd: need %d closes, got %d: %w",
			slow+signalPeriod, len(closes), ErrInsufficientHistory)
	}

	fastEMA := NewEMA(fast)
	slowEMA := NewEMA(slow)
	lines := make([]float64, 0, len(closes)-slow+1)
	for _, v := range closes {
		c := market.Candle{Close: v}
		fastEMA.Update(c)
		slowEMA.Update(c)
		if fastEMA.Ready() && slowEMA.Ready() {
			lines = append(lines, fastEMA.Value()-slowEMA.Value())
		}
	}

	sig, err := EMA(lines, signalPeriod)
	if err != nil {
		return MACDResult{}, fmt.Errorf("macd signal: %w", err)
	}

	line := lines[len(lines)-1]
	return MACDResult{
		Line:      line,
		Signal:    sig,
		Histogram: line - sig,
	}, nil
}
