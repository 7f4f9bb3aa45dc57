package market

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// observation is a successfully fetched value and when it was fetched.
type observation struct {
	value float64
	at    time.Time
	seen  bool
}

// Guarded wraps a Data collaborator with a circuit breaker and a
// last-observed cache. Reads come back as typed Quotes: Fresh from the
// collaborator, Stale from the cache when the collaborator fails or the
// breaker is open, Unavailable when there is nothing to fall back on.
type Guarded struct {
	src   Data
	cb    *gobreaker.CircuitBreaker
	clock func() time.Time

	mu       sync.Mutex
	price    observation
	balances map[string]observation
}

// GuardConfig tunes the circuit breaker around the collaborator.
type GuardConfig struct {
	Name                string
	OpenTimeout         time.Duration
	ConsecutiveFailures uint32
}

// DefaultGuardConfig trips after 3 consecutive failures and retries
// after 30 seconds.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Name:                "market-data",
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 3,
	}
}

func NewGuarded(src Data, cfg GuardConfig) *Guarded {
	settings := gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("market data breaker state change")
		},
	}
	return &Guarded{
		src:      src,
		cb:       gobreaker.NewCircuitBreaker(settings),
		clock:    time.Now,
		balances: make(map[string]observation),
	}
}

// Price returns the current price as a typed quote.
func (g *Guarded) Price(ctx context.Context) Quote {
	v, err := g.cb.Execute(func() (interface{}, error) {
		return g.src.CurrentPrice(ctx)
	})
	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		log.Debug().Err(err).Msg("price fetch failed, serving cached observation")
		return g.fallback(g.price)
	}
	g.price = observation{value: v.(float64), at: g.clock(), seen: true}
	return Quote{Value: g.price.value, State: Fresh}
}

// Balance returns the held quantity of an asset as a typed quote.
func (g *Guarded) Balance(ctx context.Context, asset string) Quote {
	v, err := g.cb.Execute(func() (interface{}, error) {
		return g.src.Balance(ctx, asset)
	})
	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		log.Debug().Err(err).Str("asset", asset).Msg("balance fetch failed, serving cached observation")
		return g.fallback(g.balances[asset])
	}
	g.balances[asset] = observation{value: v.(float64), at: g.clock(), seen: true}
	return Quote{Value: v.(float64), State: Fresh}
}

// AccountValue computes total account value in quote-asset terms:
// base balance marked at the current price plus the quote balance.
// The result is Stale if any component is, Unavailable if any
// component has never been observed.
func (g *Guarded) AccountValue(ctx context.Context, baseAsset, quoteAsset string) Quote {
	price := g.Price(ctx)
	base := g.Balance(ctx, baseAsset)
	cash := g.Balance(ctx, quoteAsset)

	worst := price.State
	age := price.Age
	for _, q := range []Quote{base, cash} {
		if q.State > worst {
			worst = q.State
		}
		if q.Age > age {
			age = q.Age
		}
	}
	if worst == Unavailable {
		return Quote{State: Unavailable}
	}
	return Quote{
		Value: base.Value*price.Value + cash.Value,
		State: worst,
		Age:   age,
	}
}

// Candles passes through to the collaborator. Candle history is not
// cached; a failed fetch degrades the cycle rather than serving stale
// bars to indicators.
func (g *Guarded) Candles(ctx context.Context, timeframe string, n int) (Series, error) {
	return g.src.Candles(ctx, timeframe, n)
}

// fallback must be called with g.mu held.
func (g *Guarded) fallback(o observation) Quote {
	if !o.seen {
		return Quote{State: Unavailable}
	}
	return Quote{Value: o.value, State: Stale, Age: g.clock().Sub(o.at)}
}

// Account binds a guarded source to one trading pair so account-level
// callers don't carry asset names around.
type Account struct {
	Guard      *Guarded
	BaseAsset  string
	QuoteAsset string
}

func (a Account) AccountValue(ctx context.Context) Quote {
	return a.Guard.AccountValue(ctx, a.BaseAsset, a.QuoteAsset)
}

func (a Account) Price(ctx context.Context) Quote {
	return a.Guard.Price(ctx)
}
