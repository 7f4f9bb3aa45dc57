package strategies

import (
	"context"
	"fmt"

	"github.com/rustyeddy/quant/config"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/signal"
)

// SentimentSource supplies an external sentiment score in [-1, 1].
// Available reports whether the feed currently has anything relevant;
// an unavailable feed disables the strategy for the cycle.
type SentimentSource interface {
	Available() bool
	LatestSentiment(ctx context.Context) (float64, error)
}

// Sentiment converts an external sentiment score into a vote. Strong
// scores drive entries and exits directly; mild scores only nudge the
// blend one way or the other.
type Sentiment struct {
	cfg       config.Strategy
	source    SentimentSource
	positions PositionReader
	baseAsset string
}

func NewSentiment(cfg config.Strategy, source SentimentSource, positions PositionReader, baseAsset string) *Sentiment {
	return &Sentiment{cfg: cfg, source: source, positions: positions, baseAsset: baseAsset}
}

func (s *Sentiment) Name() string { return "sentiment" }

func (s *Sentiment) Enabled() bool {
	return s.cfg.Enabled && s.source != nil && s.source.Available()
}

func (s *Sentiment) Produce(ctx context.Context, _ market.View) (signal.Signal, error) {
	if !s.Enabled() {
		return signal.Signal{Strategy: s.Name()}, nil
	}

	positiveThreshold := s.cfg.Param("positive_threshold", 0.6)
	negativeThreshold := s.cfg.Param("negative_threshold", -0.4)
	influence := s.cfg.Param("influence_factor", 1.5)

	score, err := s.source.LatestSentiment(ctx)
	if err != nil {
		return signal.Signal{}, fmt.Errorf("sentiment score: %w", err)
	}

	held, _ := hasPosition(ctx, s.positions, s.baseAsset)

	var value, confidence float64
	var reason string
	switch {
	case score >= positiveThreshold && !held:
		value = 1
		confidence = clamp(score, 0, 1)
		reason = fmt.Sprintf("strongly positive sentiment (%.2f)", score)
	case score >= positiveThreshold:
		value = 0.5
		confidence = clamp(score*0.7, 0, 1)
		reason = fmt.Sprintf("positive sentiment reinforces holding (%.2f)", score)
	case score <= negativeThreshold && held:
		value = -1
		confidence = clamp(abs(score), 0, 1)
		reason = fmt.Sprintf("strongly negative sentiment (%.2f)", score)
	case score > 0:
		value = 0.3
		confidence = clamp(score*0.5, 0, 1)
		reason = fmt.Sprintf("mildly positive sentiment (%.2f)", score)
	case score < 0:
		value = -0.2
		confidence = clamp(abs(score)*0.3, 0, 1)
		reason = fmt.Sprintf("mildly negative sentiment (%.2f)", score)
	}

	// The influence factor amplifies both axes before the final clamp.
	return signal.Signal{
		Strategy:   s.Name(),
		Value:      clamp(value*influence, -1, 1),
		Confidence: clamp(confidence*influence, 0, 1),
		Reason:     reason,
	}, nil
}
