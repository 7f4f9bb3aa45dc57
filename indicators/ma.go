package indicators

import (
	"fmt"

	"github.com/rustyeddy/quant/market"
)

// SMA calculates the Simple Moving Average of the last period closes.
func SMA(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("sma: period must be positive, got %d", period)
	}
	if len(closes) < period {
		return 0, fmt.Errorf("sma: need %d closes, got %d: %w", period, len(closes), ErrInsufficientHistory)
	}

	sum := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(period), nil
}

// EMA calculates the Exponential Moving Average over the full slice,
// seeded with the SMA of the first period closes.
func EMA(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("ema: period must be positive, got %d", period)
	}
	if len(closes) < period {
		return 0, fmt.Errorf("ema: need %d closes, got %d: %w", period, len(closes), ErrInsufficientHistory)
	}

	multiplier := 2.0 / float64(period+1)

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += closes[i]
	}
	ema := seed / float64(period)

	for i := period; i < len(closes); i++ {
		ema = (closes[i]-ema)*multiplier + ema
	}
	return ema, nil
}

// ExponentialMA is a streaming EMA indicator. MACD drives two of these
// over the close series to build its line history.
type ExponentialMA struct {
	period int
	mult   float64
	value  float64
	count  int
	seed   float64
}

var _ Indicator = (*ExponentialMA)(nil)

func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{
		period: period,
		mult:   2.0 / float64(period+1),
	}
}

func (e *ExponentialMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }

func (e *ExponentialMA) Warmup() int { return e.period }

func (e *ExponentialMA) Reset() {
	e.value = 0
	e.count = 0
	e.seed = 0
}

func (e *ExponentialMA) Update(c market.Candle) {
	e.count++
	if e.count <= e.period {
		e.seed += c.Close
		if e.count == e.period {
			e.value = e.seed / float64(e.period)
		}
		return
	}
	e.value = (c.Close-e.value)*e.mult + e.value
}

func (e *ExponentialMA) Ready() bool { return e.count >= e.period }

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.value
}
