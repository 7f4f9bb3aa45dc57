package market

import (
	"context"
	"errors"
	"time"
)

// ErrNoData is returned when a collaborator has nothing to serve and no
// prior observation exists to fall back on.
var ErrNoData = errors.New("market: no data available")

// View is the read-only slice of market state a signal producer may see.
// In live trading it is backed by the exchange collaborator; in a
// backtest it is backed by a history-bounded window so producers cannot
// look ahead.
type View interface {
	// CurrentPrice returns the latest trade price.
	CurrentPrice(ctx context.Context) (float64, error)

	// Candles returns up to n bars for the timeframe, most recent last.
	Candles(ctx context.Context, timeframe string, n int) (Series, error)
}

// Data is the full market-state query surface the live pipeline needs.
// Caching and staleness policy belong to the implementation, not the
// callers.
type Data interface {
	View

	// Balance returns the free quantity held of the given asset.
	Balance(ctx context.Context, asset string) (float64, error)

	// AvgEntryCost returns the average entry price of the current
	// position, or 0 when flat.
	AvgEntryCost(ctx context.Context) (float64, error)
}

// QuoteState classifies how trustworthy a quoted value is.
type QuoteState int

const (
	// Fresh means the value came straight from the collaborator.
	Fresh QuoteState = iota
	// Stale means the collaborator failed and the value is the last
	// successful observation.
	Stale
	// Unavailable means there is no value at all; Value is zero and
	// must not be used for sizing decisions.
	Unavailable
)

func (s QuoteState) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Unavailable:
		return "unavailable"
	}
	return "unknown"
}

// Quote is a value plus its freshness, so callers can decide whether a
// degraded observation is acceptable instead of silently consuming a
// substituted number.
type Quote struct {
	Value float64
	State QuoteState
	Age   time.Duration
}

// Usable reports whether the quote carries any value at all.
func (q Quote) Usable() bool { return q.State != Unavailable }
