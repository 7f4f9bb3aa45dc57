package live

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/quant/exec"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/pkg/id"
	"github.com/rustyeddy/quant/signal"
)

// PaperBook is a dry-run market collaborator: it serves candles from a
// replay series and fills orders against its own simulated balances. It
// stands in for an exchange on both sides of the pipeline, the data
// feed and the order placer.
type PaperBook struct {
	mu         sync.Mutex
	candles    market.Series
	cursor     int
	baseAsset  string
	quoteAsset string
	balances   map[string]float64
	avgCost    float64
}

func NewPaperBook(candles market.Series, baseAsset, quoteAsset string, cash float64) *PaperBook {
	return &PaperBook{
		candles:    candles,
		baseAsset:  baseAsset,
		quoteAsset: quoteAsset,
		balances:   map[string]float64{quoteAsset: cash},
	}
}

// Advance moves the replay forward one bar and reports whether a bar
// remains to trade on.
func (b *PaperBook) Advance() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cursor+1 >= len(b.candles) {
		return false
	}
	b.cursor++
	return true
}

func (b *PaperBook) CurrentPrice(context.Context) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.candles) == 0 {
		return 0, market.ErrNoData
	}
	return b.candles[b.cursor].Close, nil
}

// Candles serves the replay series for every requested timeframe: a
// single-feed book has one series, and producers written for coarser
// frames vote from the base bars rather than abstaining.
func (b *PaperBook) Candles(_ context.Context, _ string, n int) (market.Series, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	visible := b.candles[:b.cursor+1]
	return visible.Window(n), nil
}

func (b *PaperBook) Balance(_ context.Context, asset string) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[asset], nil
}

func (b *PaperBook) AvgEntryCost(context.Context) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.avgCost, nil
}

// PlaceOrder fills immediately at the current close. Orders the
// balances cannot cover are rejected, mirroring an exchange refusal.
func (b *PaperBook) PlaceOrder(_ context.Context, req exec.PlaceRequest) (exec.PlaceResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.candles) == 0 {
		return exec.PlaceResult{Err: "no market data"}, nil
	}
	price := b.candles[b.cursor].Close
	cost := req.Size * price

	switch req.Side {
	case signal.Buy:
		if b.balances[b.quoteAsset] < cost {
			return exec.PlaceResult{Err: "insufficient funds"}, nil
		}
		held := b.balances[b.baseAsset]
		// Weighted average entry across adds.
		if held+req.Size > 0 {
			b.avgCost = (b.avgCost*held + price*req.Size) / (held + req.Size)
		}
		b.balances[b.quoteAsset] -= cost
		b.balances[b.baseAsset] += req.Size
	case signal.Sell:
		if b.balances[b.baseAsset] < req.Size {
			return exec.PlaceResult{Err: "insufficient position"}, nil
		}
		b.balances[b.baseAsset] -= req.Size
		b.balances[b.quoteAsset] += cost
		if b.balances[b.baseAsset] <= 0 {
			b.avgCost = 0
		}
	default:
		return exec.PlaceResult{Err: fmt.Sprintf("unknown side %q", req.Side)}, nil
	}

	orderID := id.New()
	log.Debug().
		Str("order_id", orderID).
		Str("side", string(req.Side)).
		Float64("size", req.Size).
		Float64("price", price).
		Msg("paper fill")

	return exec.PlaceResult{Accepted: true, OrderID: orderID, FillPrice: price}, nil
}
