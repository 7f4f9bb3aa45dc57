package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/quant/market"
)

// ATR calculates the Average True Range using Wilder's smoothing.
// Needs period+1 candles because the true range uses the prior close.
func ATR(candles market.Series, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("atr: period must be positive, got %d", period)
	}
	if len(candles) < period+1 {
		return 0, fmt.Errorf("atr: need %d candles, got %d: %w", period+1, len(candles), ErrInsufficientHistory)
	}

	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		trs = append(trs, trueRange(candles[i], candles[i-1]))
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += trs[i]
	}
	atr := sum / float64(period)

	for i := period; i < len(trs); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
	}
	return atr, nil
}

// trueRange is the largest of high-low, |high-prevClose|, |low-prevClose|.
func trueRange(current, previous market.Candle) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}
