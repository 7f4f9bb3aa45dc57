package indicators

import (
	"errors"
	"testing"

	"github.com/rustyeddy/quant/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candlesFromCloses(closes ...float64) market.Series {
	s := make(market.Series, len(closes))
	for i, c := range closes {
		s[i] = market.Candle{Open: c, High: c, Low: c, Close: c}
	}
	return s
}

func TestSMA(t *testing.T) {
	v, err := SMA([]float64{1, 2, 3, 4, 5}, 5)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, 1e-12)

	// Only the trailing window counts.
	v, err = SMA([]float64{100, 1, 2, 3}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v, 1e-12)
}

func TestSMAInsufficientHistory(t *testing.T) {
	_, err := SMA([]float64{1, 2}, 3)
	assert.True(t, errors.Is(err, ErrInsufficientHistory))
}

func TestEMAConstantSeries(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 7.5
	}
	v, err := EMA(closes, 10)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, v, 1e-12)
}

func TestStreamingEMAMatchesBatch(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 9, 8, 7, 8, 9}

	batch, err := EMA(closes, 5)
	require.NoError(t, err)

	ema := NewEMA(5)
	for _, c := range candlesFromCloses(closes...) {
		ema.Update(c)
	}
	require.True(t, ema.Ready())
	assert.InDelta(t, batch, ema.Value(), 1e-12)
}

func TestRSIExtremes(t *testing.T) {
	// Strictly rising closes: no losses, RSI pegs at 100.
	up := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	v, err := RSI(up, 14)
	require.NoError(t, err)
	assert.InDelta(t, 100, v, 1e-9)

	// Strictly falling closes: no gains, RSI pegs at 0.
	down := make([]float64, 15)
	for i := range down {
		down[i] = float64(15 - i)
	}
	v, err = RSI(down, 14)
	require.NoError(t, err)
	assert.InDelta(t, 0, v, 1e-9)
}

func TestATRFlatSeriesIsZero(t *testing.T) {
	v, err := ATR(candlesFromCloses(5, 5, 5, 5, 5, 5, 5, 5), 7)
	require.NoError(t, err)
	assert.InDelta(t, 0, v, 1e-12)
}

func TestATRInsufficientHistory(t *testing.T) {
	_, err := ATR(candlesFromCloses(1, 2, 3), 14)
	assert.True(t, errors.Is(err, ErrInsufficientHistory))
}

func TestBollingerFlatSeries(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 4.0
	}
	b, err := Bollinger(closes, 20, 2.0)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, b.Middle, 1e-12)
	assert.InDelta(t, 4.0, b.Upper, 1e-12)
	assert.InDelta(t, 4.0, b.Lower, 1e-12)
	assert.InDelta(t, 0.0, b.Width, 1e-12)
}

func TestMACDLineMatchesBatchEMAs(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 10 + float64(i%7)
	}

	m, err := MACD(closes, 12, 26, 9)
	require.NoError(t, err)

	// The streamed line must land exactly where the batch EMAs do.
	fast, err := EMA(closes, 12)
	require.NoError(t, err)
	slow, err := EMA(closes, 26)
	require.NoError(t, err)
	assert.InDelta(t, fast-slow, m.Line, 1e-12)
	assert.InDelta(t, m.Line-m.Signal, m.Histogram, 1e-12)
}

func TestMACDFlatSeriesIsZero(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 2.0
	}
	m, err := MACD(closes, 12, 26, 9)
	require.NoError(t, err)
	assert.InDelta(t, 0, m.Line, 1e-12)
	assert.InDelta(t, 0, m.Histogram, 1e-12)
}
