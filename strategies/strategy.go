// Package strategies contains the signal producers: each one inspects
// market state and votes a direction with a confidence.
package strategies

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/quant/config"
	"github.com/rustyeddy/quant/signal"
)

// PositionReader answers whether the book currently holds the base
// asset and at what average cost. A nil reader means a flat book.
type PositionReader interface {
	Balance(ctx context.Context, asset string) (float64, error)
	AvgEntryCost(ctx context.Context) (float64, error)
}

// minHolding is the base-asset quantity below which the book counts as
// flat. Dust from rounding must not flip hold-state logic.
const minHolding = 0.1

// hasPosition reads the base-asset balance and classifies the book.
// Reader errors degrade to "flat" so a strategy still votes.
func hasPosition(ctx context.Context, pos PositionReader, asset string) (held bool, avgCost float64) {
	if pos == nil {
		return false, 0
	}
	bal, err := pos.Balance(ctx, asset)
	if err != nil || bal <= minHolding {
		return false, 0
	}
	cost, err := pos.AvgEntryCost(ctx)
	if err != nil {
		return true, 0
	}
	return true, cost
}

// Deps is what strategies may need beyond the per-call market view.
type Deps struct {
	Positions PositionReader
	Sentiment SentimentSource
	BaseAsset string
}

// Constructor builds one producer from its configuration slice.
type Constructor func(cfg config.Strategy, deps Deps) signal.Producer

var registry = make(map[string]Constructor)

func Register(name string, c Constructor) {
	registry[name] = c
}

func init() {
	Register("bollinger", func(cfg config.Strategy, _ Deps) signal.Producer {
		return NewBollinger(cfg)
	})
	Register("breakout", func(cfg config.Strategy, deps Deps) signal.Producer {
		return NewBreakout(cfg, deps.Positions, deps.BaseAsset)
	})
	Register("multitimeframe", func(cfg config.Strategy, deps Deps) signal.Producer {
		return NewMultiTimeframe(cfg, deps.Positions, deps.BaseAsset)
	})
	Register("sentiment", func(cfg config.Strategy, deps Deps) signal.Producer {
		return NewSentiment(cfg, deps.Sentiment, deps.Positions, deps.BaseAsset)
	})
}

// ByName constructs one registered producer.
func ByName(name string, cfg *config.Config, deps Deps) (signal.Producer, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (registered: %s)", name, strings.Join(registered(), ", "))
	}
	return c(cfg.Strategies[name], deps), nil
}

func registered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromConfig constructs every configured producer with a registered
// constructor, in registry-name order so combined reason lists are
// reproducible.
func FromConfig(cfg *config.Config, deps Deps) ([]signal.Producer, error) {
	if deps.BaseAsset == "" {
		deps.BaseAsset = cfg.System.BaseAsset
	}
	producers := make([]signal.Producer, 0, len(cfg.Strategies))
	for _, name := range registered() {
		if _, ok := cfg.Strategies[name]; !ok {
			continue
		}
		p, err := ByName(name, cfg, deps)
		if err != nil {
			return nil, err
		}
		producers = append(producers, p)
	}
	return producers, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
