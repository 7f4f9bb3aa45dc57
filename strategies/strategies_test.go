package strategies

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/quant/config"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/signal"
)

// fakeView serves a fixed candle set per timeframe.
type fakeView struct {
	price   float64
	candles map[string]market.Series
}

func (v *fakeView) CurrentPrice(context.Context) (float64, error) {
	return v.price, nil
}

func (v *fakeView) Candles(_ context.Context, timeframe string, n int) (market.Series, error) {
	s, ok := v.candles[timeframe]
	if !ok {
		return nil, market.ErrNoData
	}
	return s.Window(n), nil
}

type fakePositions struct {
	balance float64
	avgCost float64
}

func (p *fakePositions) Balance(context.Context, string) (float64, error) {
	return p.balance, nil
}

func (p *fakePositions) AvgEntryCost(context.Context) (float64, error) {
	return p.avgCost, nil
}

type fakeSentiment struct {
	available bool
	score     float64
}

func (s *fakeSentiment) Available() bool { return s.available }

func (s *fakeSentiment) LatestSentiment(context.Context) (float64, error) {
	return s.score, nil
}

func candlesOHLCV(bars []market.Candle) market.Series {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i].Time = start.Add(time.Duration(i) * time.Hour)
	}
	return bars
}

func closesOnly(closes ...float64) market.Series {
	bars := make([]market.Candle, len(closes))
	for i, c := range closes {
		bars[i] = market.Candle{Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return candlesOHLCV(bars)
}

func repeatCloses(n int, c float64) market.Series {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = c
	}
	return closesOnly(closes...)
}

func enabled(params map[string]float64) config.Strategy {
	return config.Strategy{Enabled: true, Params: params}
}

// bimodalCloses yields 20 closes split between 0.9 and 1.1: SMA 1.0,
// stddev 0.1, so the default bands sit at 0.8 and 1.2.
func bimodalCloses() market.Series {
	closes := make([]float64, 0, 30)
	for i := 0; i < 15; i++ {
		closes = append(closes, 0.9, 1.1)
	}
	return closesOnly(closes...)
}

func TestBollingerBuyNearLowerBand(t *testing.T) {
	b := NewBollinger(enabled(nil))
	view := &fakeView{price: 0.85, candles: map[string]market.Series{"1H": bimodalCloses()}}

	s, err := b.Produce(context.Background(), view)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	// fromLower = (0.85-0.8)/0.4 = 0.125; confidence = 1 - 0.125/0.3.
	assert.InDelta(t, 1-0.125/0.3, s.Confidence, 1e-9)
	assert.Greater(t, s.Value, 0.0)
	assert.Contains(t, s.Reason, "lower band")
}

func TestBollingerSellNearUpperBand(t *testing.T) {
	b := NewBollinger(enabled(nil))
	view := &fakeView{price: 1.18, candles: map[string]market.Series{"1H": bimodalCloses()}}

	s, err := b.Produce(context.Background(), view)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	assert.Less(t, s.Value, 0.0)
	assert.Contains(t, s.Reason, "upper band")
}

func TestBollingerNeutralMidBand(t *testing.T) {
	// Default thresholds overlap across the whole band, so a neutral
	// zone only exists with tighter ones.
	b := NewBollinger(enabled(map[string]float64{
		"buy_threshold":  0.2,
		"sell_threshold": 0.2,
	}))
	view := &fakeView{price: 1.0, candles: map[string]market.Series{"1H": bimodalCloses()}}

	s, err := b.Produce(context.Background(), view)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	assert.Zero(t, s.Value)
	assert.Zero(t, s.Confidence)
}

func TestBollingerZeroWidthNeutral(t *testing.T) {
	b := NewBollinger(enabled(nil))
	view := &fakeView{price: 1.0, candles: map[string]market.Series{"1H": repeatCloses(30, 1.0)}}

	s, err := b.Produce(context.Background(), view)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	assert.Zero(t, s.Value)
	assert.Equal(t, "zero band width", s.Reason)
}

func TestBollingerInsufficientData(t *testing.T) {
	b := NewBollinger(enabled(nil))
	view := &fakeView{price: 1.0, candles: map[string]market.Series{"1H": repeatCloses(5, 1.0)}}

	s, err := b.Produce(context.Background(), view)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	assert.Zero(t, s.Confidence)
	assert.Equal(t, "insufficient candle data", s.Reason)
}

func TestBollingerDisabled(t *testing.T) {
	b := NewBollinger(config.Strategy{Enabled: false})
	assert.False(t, b.Enabled())

	s, err := b.Produce(context.Background(), &fakeView{})
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	assert.Zero(t, s.Value)
	assert.Zero(t, s.Confidence)
}

// rangedCandles builds bars with a fixed high-low range so ATR is a
// known constant (0.1 with these values).
func rangedCandles(n int, vols ...float64) market.Series {
	bars := make([]market.Candle, n)
	for i := range bars {
		bars[i] = market.Candle{Open: 1.0, High: 1.05, Low: 0.95, Close: 1.0, Volume: 1000}
	}
	for i, v := range vols {
		bars[n-len(vols)+i].Volume = v
	}
	return candlesOHLCV(bars)
}

func TestBreakoutBuyOnVolumeConfirmedBreakout(t *testing.T) {
	b := NewBreakout(enabled(nil), nil, "DOGE")
	// ATR 0.1, recent high 1.05, breakout level 1.05 + 1.5*0.1 = 1.2.
	view := &fakeView{
		price:   1.2,
		candles: map[string]market.Series{"4H": rangedCandles(24, 1000, 2000)},
	}

	s, err := b.Produce(context.Background(), view)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	assert.InDelta(t, 1.0, s.Value, 1e-9)
	assert.InDelta(t, 1.0, s.Confidence, 1e-9)
	assert.Contains(t, s.Reason, "breakout above")
}

func TestBreakoutNoBuyWithoutVolume(t *testing.T) {
	b := NewBreakout(enabled(nil), nil, "DOGE")
	view := &fakeView{
		price:   1.2,
		candles: map[string]market.Series{"4H": rangedCandles(24, 1000, 1000)},
	}

	s, err := b.Produce(context.Background(), view)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	assert.Zero(t, s.Value, "breakout without volume expansion must not fire")
}

func TestBreakoutStopLossWhenHeld(t *testing.T) {
	positions := &fakePositions{balance: 100, avgCost: 1.2}
	b := NewBreakout(enabled(nil), positions, "DOGE")
	// Stop sits at 1.2 - 1.5*0.1 = 1.05; price 1.0 is through it.
	view := &fakeView{
		price:   1.0,
		candles: map[string]market.Series{"4H": rangedCandles(24)},
	}

	s, err := b.Produce(context.Background(), view)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	assert.InDelta(t, -1.0, s.Value, 1e-9)
	assert.InDelta(t, 1.0, s.Confidence, 1e-9)
	assert.Contains(t, s.Reason, "stop-loss")
}

func TestBreakoutTakeProfitWhenHeld(t *testing.T) {
	positions := &fakePositions{balance: 100, avgCost: 1.0}
	b := NewBreakout(enabled(nil), positions, "DOGE")
	// Take-profit sits at 1.0 + 3*0.1 = 1.3.
	view := &fakeView{
		price:   1.35,
		candles: map[string]market.Series{"4H": rangedCandles(24)},
	}

	s, err := b.Produce(context.Background(), view)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	assert.InDelta(t, -0.8, s.Value, 1e-9)
	assert.InDelta(t, 0.8, s.Confidence, 1e-9)
	assert.Contains(t, s.Reason, "take-profit")
}

func TestMultiTimeframeSellWhenTrendWeakAndHeld(t *testing.T) {
	positions := &fakePositions{balance: 100, avgCost: 1.0}
	m := NewMultiTimeframe(enabled(nil), positions, "DOGE")

	// Declining 4H closes push RSI to the floor; flat daily SMAs make
	// the trend weak, which is enough to exit a held position.
	declining := make([]float64, 50)
	for i := range declining {
		declining[i] = 2.0 - float64(i)*0.01
	}
	view := &fakeView{
		price: 1.5,
		candles: map[string]market.Series{
			"1D": repeatCloses(200, 1.0),
			"4H": closesOnly(declining...),
		},
	}

	s, err := m.Produce(context.Background(), view)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	assert.InDelta(t, -0.5, s.Value, 1e-9)
	assert.InDelta(t, 0.5, s.Confidence, 1e-9)
}

func TestMultiTimeframeNeutralWhenFlat(t *testing.T) {
	m := NewMultiTimeframe(enabled(nil), nil, "DOGE")
	declining := make([]float64, 50)
	for i := range declining {
		declining[i] = 2.0 - float64(i)*0.01
	}
	view := &fakeView{
		price: 1.5,
		candles: map[string]market.Series{
			"1D": repeatCloses(200, 1.0),
			"4H": closesOnly(declining...),
		},
	}

	s, err := m.Produce(context.Background(), view)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	assert.Zero(t, s.Value, "no position means nothing to exit")
}

func TestMultiTimeframeInsufficientDailyData(t *testing.T) {
	m := NewMultiTimeframe(enabled(nil), nil, "DOGE")
	view := &fakeView{
		price:   1.0,
		candles: map[string]market.Series{"1D": repeatCloses(10, 1.0)},
	}

	s, err := m.Produce(context.Background(), view)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	assert.Zero(t, s.Confidence)
	assert.Equal(t, "insufficient daily data", s.Reason)
}

func TestSentimentStrongPositiveBuysWhenFlat(t *testing.T) {
	src := &fakeSentiment{available: true, score: 0.8}
	s := NewSentiment(enabled(nil), src, nil, "DOGE")

	sig, err := s.Produce(context.Background(), nil)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	assert.Equal(t, 1.0, sig.Value, "influence factor saturates the clamp")
	assert.Equal(t, 1.0, sig.Confidence)
}

func TestSentimentStrongNegativeSellsWhenHeld(t *testing.T) {
	src := &fakeSentiment{available: true, score: -0.6}
	positions := &fakePositions{balance: 100}
	s := NewSentiment(enabled(nil), src, positions, "DOGE")

	sig, err := s.Produce(context.Background(), nil)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	assert.Equal(t, -1.0, sig.Value)
	assert.InDelta(t, 0.9, sig.Confidence, 1e-9)
}

func TestSentimentMildPositiveNudges(t *testing.T) {
	src := &fakeSentiment{available: true, score: 0.3}
	s := NewSentiment(enabled(nil), src, nil, "DOGE")

	sig, err := s.Produce(context.Background(), nil)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	assert.InDelta(t, 0.45, sig.Value, 1e-9)
	assert.InDelta(t, 0.225, sig.Confidence, 1e-9)
}

func TestSentimentUnavailableDisables(t *testing.T) {
	src := &fakeSentiment{available: false, score: 0.9}
	s := NewSentiment(enabled(nil), src, nil, "DOGE")
	assert.False(t, s.Enabled())

	sig, err := s.Produce(context.Background(), nil)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	assert.Zero(t, sig.Value)
	assert.Zero(t, sig.Confidence)
}

func TestSentimentNilSourceDisables(t *testing.T) {
	s := NewSentiment(enabled(nil), nil, nil, "DOGE")
	assert.False(t, s.Enabled())
}

func TestFromConfigBuildsAllProducers(t *testing.T) {
	cfg := config.Default()
	producers, err := FromConfig(cfg, Deps{Sentiment: &fakeSentiment{available: true}})
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	names := make([]string, len(producers))
	for i, p := range producers {
		names[i] = p.Name()
	}
	assert.Equal(t, []string{"bollinger", "breakout", "multitimeframe", "sentiment"}, names)
}

func TestByNameUnknown(t *testing.T) {
	_, err := ByName("momentum", config.Default(), Deps{})
	assert.Error(t, err)
}

func TestRegisterCustomProducer(t *testing.T) {
	Register("always-bull", func(cfg config.Strategy, _ Deps) signal.Producer {
		return bullProducer{enabled: cfg.Enabled}
	})

	cfg := config.Default()
	cfg.Strategies["always-bull"] = config.Strategy{Enabled: true}

	p, err := ByName("always-bull", cfg, Deps{})
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	assert.Equal(t, "always-bull", p.Name())
	assert.True(t, p.Enabled())
}

type bullProducer struct {
	enabled bool
}

func (p bullProducer) Name() string  { return "always-bull" }
func (p bullProducer) Enabled() bool { return p.enabled }

func (p bullProducer) Produce(context.Context, market.View) (signal.Signal, error) {
	return signal.Signal{Strategy: "always-bull", Value: 1, Confidence: 1}, nil
}
