// Package risk converts account telemetry into go/no-go decisions and
// size caps. A proposed order never leaves this package bigger than the
// configured limits allow.
package risk

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/quant/config"
	"github.com/rustyeddy/quant/market"
)

// windowLength is the rolling loss window.
const windowLength = 24 * time.Hour

// ErrAccountUnknown is returned when no account value has ever been
// observed; sizing against an unknown balance is refused outright.
var ErrAccountUnknown = errors.New("risk: account value unknown")

// AccountSource supplies the telemetry the governor watches. Quotes
// carry their own freshness; the governor accepts stale values
// (continuity over freshness) but refuses unavailable ones.
type AccountSource interface {
	AccountValue(ctx context.Context) market.Quote
	Price(ctx context.Context) market.Quote
}

// State is the rolling risk window. One governor owns it; readers get
// copies via Snapshot.
type State struct {
	WindowStart        time.Time
	WindowStartBalance float64
	LastBalance        float64
	DailyPnL           float64
	DailyLoss          float64
	Halted             bool
}

// Governor tracks a 24-hour rolling loss window and halts trading when
// the loss ratio crosses the configured maximum. The halt clears when
// the ratio drops back below the threshold or the window resets.
type Governor struct {
	mu     sync.Mutex
	params config.Risk
	src    AccountSource
	clock  func() time.Time
	state  State
}

func NewGovernor(params config.Risk, src AccountSource) *Governor {
	return &Governor{
		params: params,
		src:    src,
		clock:  time.Now,
	}
}

// Update refreshes the rolling window from current telemetry. A failed
// retrieval behind the source degrades to a stale value; only a fully
// unavailable value skips the update.
func (g *Governor) Update(ctx context.Context) {
	q := g.src.AccountValue(ctx)
	now := g.clock()

	g.mu.Lock()
	defer g.mu.Unlock()

	if !q.Usable() {
		log.Warn().Msg("account value unavailable, risk metrics not updated")
		return
	}
	balance := q.Value

	if g.state.WindowStart.IsZero() || now.Sub(g.state.WindowStart) > windowLength {
		g.resetLocked(now, balance)
		return
	}

	g.state.DailyPnL = balance - g.state.WindowStartBalance
	g.state.DailyLoss = 0
	if d := g.state.LastBalance - balance; d > 0 {
		g.state.DailyLoss = d
	}
	g.state.LastBalance = balance

	ratio := g.lossRatioLocked(balance)
	wasHalted := g.state.Halted
	g.state.Halted = ratio >= g.params.MaxDailyLossPercent

	if g.state.Halted && !wasHalted {
		log.Warn().
			Float64("loss_percent", ratio).
			Float64("max_daily_loss_percent", g.params.MaxDailyLossPercent).
			Float64("window_start_balance", g.state.WindowStartBalance).
			Float64("balance", balance).
			Msg("daily loss limit reached, trading halted")
	} else if !g.state.Halted && wasHalted {
		log.Info().
			Float64("loss_percent", ratio).
			Msg("loss ratio back below limit, trading resumed")
	}
}

// Reset starts a fresh window from the current account value. With no
// usable observation the existing window is kept; seeding a window from
// a zero balance would pin the loss ratio at zero for its whole life.
func (g *Governor) Reset(ctx context.Context) {
	q := g.src.AccountValue(ctx)
	now := g.clock()

	g.mu.Lock()
	defer g.mu.Unlock()
	if !q.Usable() {
		log.Warn().Msg("account value unavailable, risk window not reset")
		return
	}
	g.resetLocked(now, q.Value)
}

// resetLocked must be called with g.mu held.
func (g *Governor) resetLocked(now time.Time, balance float64) {
	g.state = State{
		WindowStart:        now,
		WindowStartBalance: balance,
		LastBalance:        balance,
	}
	log.Info().
		Float64("window_start_balance", balance).
		Time("window_start", now).
		Msg("risk window reset")
}

// lossRatioLocked must be called with g.mu held.
func (g *Governor) lossRatioLocked(balance float64) float64 {
	if g.state.WindowStartBalance <= 0 {
		return 0
	}
	return (g.state.WindowStartBalance - balance) / g.state.WindowStartBalance * 100
}

// Halted reports whether the circuit breaker is tripped.
func (g *Governor) Halted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Halted
}

// Snapshot returns a point-in-time copy of the risk state.
func (g *Governor) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// AccountValue reports the current account value for sizing decisions.
// A zero value with ErrAccountUnknown means no observation exists at
// all; callers must refuse to size positions against it.
func (g *Governor) AccountValue(ctx context.Context) (float64, error) {
	q := g.src.AccountValue(ctx)
	if !q.Usable() {
		return 0, ErrAccountUnknown
	}
	if q.State == market.Stale {
		log.Debug().Dur("age", q.Age).Msg("sizing against stale account value")
	}
	return q.Value, nil
}

// CheckPositionSize clamps a proposed size (base-asset units) to the
// configured maximum position percentage of account value. This is a
// hard cap independent of how the proposal was computed.
func (g *Governor) CheckPositionSize(ctx context.Context, proposed float64) (float64, error) {
	value, err := g.AccountValue(ctx)
	if err != nil {
		return 0, err
	}

	price := g.src.Price(ctx)
	if !price.Usable() || price.Value <= 0 {
		return 0, market.ErrNoData
	}

	maxAllowed := value * g.params.MaxPositionPercent / 100 / price.Value
	if proposed <= maxAllowed {
		return proposed, nil
	}

	if maxAllowed < proposed*0.9 {
		log.Info().
			Float64("proposed", proposed).
			Float64("adjusted", maxAllowed).
			Msg("position size clamped to risk limit")
	}
	return maxAllowed, nil
}

// StopLoss returns the stop price for an entry.
func (g *Governor) StopLoss(entry float64) float64 {
	return entry * (1 - g.params.StopLossPercent/100)
}

// TakeProfit returns the take-profit price for an entry. The distance
// is always a multiple of the stop-loss distance, never independent.
func (g *Governor) TakeProfit(entry float64) float64 {
	return entry * (1 + g.params.StopLossPercent*g.params.TakeProfitRatio/100)
}
