package market

import "time"

// Candle represents one OHLCV bar. Bars in a series are ordered oldest
// first, most recent last.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is an ordered slice of candles with a few lookback helpers.
type Series []Candle

// Closes returns the close prices in series order.
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, c := range s {
		closes[i] = c.Close
	}
	return closes
}

// Window returns the last n candles, or the whole series if it is
// shorter than n.
func (s Series) Window(n int) Series {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Last returns the most recent candle and false if the series is empty.
func (s Series) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}
