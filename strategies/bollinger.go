package strategies

import (
	"context"
	"fmt"

	"github.com/rustyeddy/quant/config"
	"github.com/rustyeddy/quant/indicators"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/signal"
)

// Bollinger votes mean reversion: buy near the lower band, sell near
// the upper band, with confidence growing as price approaches a band.
type Bollinger struct {
	cfg config.Strategy
}

func NewBollinger(cfg config.Strategy) *Bollinger {
	return &Bollinger{cfg: cfg}
}

func (b *Bollinger) Name() string  { return "bollinger" }
func (b *Bollinger) Enabled() bool { return b.cfg.Enabled }

func (b *Bollinger) Produce(ctx context.Context, view market.View) (signal.Signal, error) {
	if !b.cfg.Enabled {
		return signal.Signal{Strategy: b.Name()}, nil
	}

	period := int(b.cfg.Param("period", 20))
	stdDev := b.cfg.Param("std_dev", 2.0)
	buyThreshold := b.cfg.Param("buy_threshold", 0.3)
	sellThreshold := b.cfg.Param("sell_threshold", 0.7)

	candles, err := view.Candles(ctx, "1H", period+10)
	if err != nil {
		return signal.Signal{}, fmt.Errorf("bollinger candles: %w", err)
	}
	if len(candles) < period {
		return signal.Signal{Strategy: b.Name(), Reason: "insufficient candle data"}, nil
	}

	bands, err := indicators.Bollinger(candles.Closes(), period, stdDev)
	if err != nil {
		return signal.Signal{}, fmt.Errorf("bollinger bands: %w", err)
	}
	if bands.Width <= 0 {
		return signal.Signal{Strategy: b.Name(), Reason: "zero band width"}, nil
	}

	price, err := view.CurrentPrice(ctx)
	if err != nil {
		return signal.Signal{}, fmt.Errorf("bollinger price: %w", err)
	}

	fromLower := (price - bands.Lower) / bands.Width
	fromUpper := (bands.Upper - price) / bands.Width

	var value, confidence float64
	var reason string
	switch {
	case fromLower <= buyThreshold:
		confidence = 1.0 - fromLower/buyThreshold
		value = 1
		reason = fmt.Sprintf("price near lower band (%.6f vs %.6f)", price, bands.Lower)
	case fromUpper <= sellThreshold:
		confidence = 1.0 - fromUpper/sellThreshold
		value = -1
		reason = fmt.Sprintf("price near upper band (%.6f vs %.6f)", price, bands.Upper)
	}

	return signal.Signal{
		Strategy:   b.Name(),
		Value:      clamp(value*confidence, -1, 1),
		Confidence: confidence,
		Reason:     reason,
	}, nil
}
