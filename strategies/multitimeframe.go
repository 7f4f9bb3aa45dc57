package strategies

import (
	"context"
	"fmt"

	"github.com/rustyeddy/quant/config"
	"github.com/rustyeddy/quant/indicators"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/signal"
)

// MultiTimeframe reads trend direction off daily moving averages and
// times entries off 4-hour RSI and MACD. Both frames must agree before
// it votes to buy.
type MultiTimeframe struct {
	cfg       config.Strategy
	positions PositionReader
	baseAsset string
}

func NewMultiTimeframe(cfg config.Strategy, positions PositionReader, baseAsset string) *MultiTimeframe {
	return &MultiTimeframe{cfg: cfg, positions: positions, baseAsset: baseAsset}
}

func (m *MultiTimeframe) Name() string  { return "multitimeframe" }
func (m *MultiTimeframe) Enabled() bool { return m.cfg.Enabled }

func (m *MultiTimeframe) Produce(ctx context.Context, view market.View) (signal.Signal, error) {
	if !m.cfg.Enabled {
		return signal.Signal{Strategy: m.Name()}, nil
	}

	smaFast := int(m.cfg.Param("daily_sma_fast", 50))
	smaSlow := int(m.cfg.Param("daily_sma_slow", 200))
	rsiPeriod := int(m.cfg.Param("rsi_period", 14))
	rsiOverbought := m.cfg.Param("rsi_overbought", 70)
	rsiOversold := m.cfg.Param("rsi_oversold", 35)

	daily, err := view.Candles(ctx, "1D", smaSlow)
	if err != nil {
		return signal.Signal{}, fmt.Errorf("multitimeframe daily candles: %w", err)
	}
	if len(daily) < smaSlow {
		return signal.Signal{Strategy: m.Name(), Reason: "insufficient daily data"}, nil
	}

	dailyCloses := daily.Closes()
	fast, err := indicators.SMA(dailyCloses, smaFast)
	if err != nil {
		return signal.Signal{}, fmt.Errorf("multitimeframe fast sma: %w", err)
	}
	slow, err := indicators.SMA(dailyCloses, smaSlow)
	if err != nil {
		return signal.Signal{}, fmt.Errorf("multitimeframe slow sma: %w", err)
	}

	bullish := fast > slow
	trendStrength := 0.0
	if slow != 0 {
		trendStrength = abs(fast/slow-1) * 100
	}

	hourly, err := view.Candles(ctx, "4H", 50)
	if err != nil {
		return signal.Signal{}, fmt.Errorf("multitimeframe 4h candles: %w", err)
	}
	if len(hourly) < rsiPeriod+1 {
		return signal.Signal{Strategy: m.Name(), Reason: "insufficient 4h data"}, nil
	}

	hourlyCloses := hourly.Closes()
	rsi, err := indicators.RSI(hourlyCloses, rsiPeriod)
	if err != nil {
		return signal.Signal{}, fmt.Errorf("multitimeframe rsi: %w", err)
	}

	// MACD may legitimately lack history on short replays; a neutral
	// zero line keeps the cross conditions from firing.
	var macd indicators.MACDResult
	if r, err := indicators.MACD(hourlyCloses, 12, 26, 9); err == nil {
		macd = r
	}

	held, _ := hasPosition(ctx, m.positions, m.baseAsset)

	// A below-zero golden cross in an uptrend with an oversold RSI is
	// the only buy this strategy takes.
	buy := bullish &&
		rsi < rsiOversold &&
		macd.Line > macd.Signal &&
		macd.Line < 0

	sell := held && (fast < slow*1.02 ||
		rsi > rsiOverbought ||
		(macd.Line < macd.Signal && macd.Line > 0))

	var value, confidence float64
	var reason string
	switch {
	case buy:
		confidence = clamp((rsiOversold-rsi)/rsiOversold+trendStrength/100, 0, 1)
		value = 1
		reason = fmt.Sprintf("timeframe alignment buy (trend bullish, rsi %.2f)", rsi)
	case sell:
		if rsi > rsiOverbought {
			confidence = clamp((rsi-rsiOverbought)/(100-rsiOverbought), 0, 1)
		} else {
			confidence = 0.5
		}
		value = -1
		reason = "timeframe alignment sell"
	}

	return signal.Signal{
		Strategy:   m.Name(),
		Value:      clamp(value*confidence, -1, 1),
		Confidence: confidence,
		Reason:     reason,
	}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
