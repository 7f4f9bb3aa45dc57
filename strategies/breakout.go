package strategies

import (
	"context"
	"fmt"

	"github.com/rustyeddy/quant/config"
	"github.com/rustyeddy/quant/indicators"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/signal"
)

// recentBars is the lookback for the breakout reference high and low.
const recentBars = 12

// Breakout votes momentum: buy when price clears the recent high by an
// ATR-scaled margin on expanding volume, exit on ATR-based take-profit,
// stop-loss, or a pullback toward the broken level.
type Breakout struct {
	cfg       config.Strategy
	positions PositionReader
	baseAsset string
}

func NewBreakout(cfg config.Strategy, positions PositionReader, baseAsset string) *Breakout {
	return &Breakout{cfg: cfg, positions: positions, baseAsset: baseAsset}
}

func (b *Breakout) Name() string  { return "breakout" }
func (b *Breakout) Enabled() bool { return b.cfg.Enabled }

func (b *Breakout) Produce(ctx context.Context, view market.View) (signal.Signal, error) {
	if !b.cfg.Enabled {
		return signal.Signal{Strategy: b.Name()}, nil
	}

	atrPeriod := int(b.cfg.Param("atr_period", 14))
	volumeFactor := b.cfg.Param("volume_factor", 1.5)
	breakoutFactor := b.cfg.Param("breakout_factor", 1.5)

	candles, err := view.Candles(ctx, "4H", 24)
	if err != nil {
		return signal.Signal{}, fmt.Errorf("breakout candles: %w", err)
	}
	if len(candles) < atrPeriod+1 {
		return signal.Signal{Strategy: b.Name(), Reason: "insufficient candle data"}, nil
	}

	atr, err := indicators.ATR(candles, atrPeriod)
	if err != nil {
		return signal.Signal{}, fmt.Errorf("breakout atr: %w", err)
	}

	recent := candles.Window(recentBars)
	recentHigh := recent[0].High
	for _, c := range recent[1:] {
		if c.High > recentHigh {
			recentHigh = c.High
		}
	}

	price, err := view.CurrentPrice(ctx)
	if err != nil {
		return signal.Signal{}, fmt.Errorf("breakout price: %w", err)
	}

	currentVolume := candles[len(candles)-1].Volume
	prevVolume := candles[len(candles)-2].Volume
	volumeExpanding := currentVolume > prevVolume*volumeFactor

	breakoutLevel := recentHigh + breakoutFactor*atr
	pullbackLevel := recentHigh + 0.5*atr

	held, avgCost := hasPosition(ctx, b.positions, b.baseAsset)

	var value, confidence float64
	var reason string
	switch {
	case !held && price >= breakoutLevel && volumeExpanding:
		// Strength scales with how far past the reference high the
		// breakout has carried.
		margin := (price - recentHigh) / (breakoutLevel - recentHigh)
		value = 1
		confidence = clamp(margin, 0, 1)
		reason = fmt.Sprintf("breakout above %.6f on expanding volume (%.2f > %.2f)",
			breakoutLevel, currentVolume, prevVolume*volumeFactor)

	case held && price >= avgCost+3*atr:
		value = -1
		confidence = 0.8
		reason = fmt.Sprintf("take-profit reached at %.6f (atr %.6f)", avgCost+3*atr, atr)

	case held && price <= avgCost-1.5*atr:
		value = -1
		confidence = 1.0
		reason = fmt.Sprintf("stop-loss hit at %.6f (atr %.6f)", avgCost-1.5*atr, atr)

	case held && price <= pullbackLevel:
		value = -1
		confidence = 0.6
		reason = fmt.Sprintf("pullback to %.6f (recent high %.6f)", pullbackLevel, recentHigh)
	}

	return signal.Signal{
		Strategy:   b.Name(),
		Value:      clamp(value*confidence, -1, 1),
		Confidence: confidence,
		Reason:     reason,
	}, nil
}
