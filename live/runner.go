// Package live drives the recurring decide-and-execute cycle against a
// real market feed.
package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/quant/config"
	"github.com/rustyeddy/quant/exec"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/metrics"
	"github.com/rustyeddy/quant/risk"
	"github.com/rustyeddy/quant/signal"
)

// Decision is what one cycle concluded, kept for status queries.
type Decision struct {
	At       time.Time
	Combined signal.Combined
	Traded   bool
	Skipped  string // empty when the cycle ran to completion
}

// Runner evaluates the strategy pipeline on a fixed interval and routes
// any resulting order through the execution gateway. Cancellation is
// honored between cycles; a cycle in flight finishes its work first.
type Runner struct {
	cfg        *config.Config
	data       *market.Guarded
	producers  []signal.Producer
	aggregator *signal.Aggregator
	governor   *risk.Governor
	gateway    *exec.Gateway
	interval   time.Duration

	mu     sync.Mutex
	last   Decision
	cycles int
}

func NewRunner(cfg *config.Config, data *market.Guarded, producers []signal.Producer,
	aggregator *signal.Aggregator, governor *risk.Governor, gateway *exec.Gateway) (*Runner, error) {

	interval, err := cfg.System.Interval()
	if err != nil {
		return nil, fmt.Errorf("check interval: %w", err)
	}
	return &Runner{
		cfg:        cfg,
		data:       data,
		producers:  producers,
		aggregator: aggregator,
		governor:   governor,
		gateway:    gateway,
		interval:   interval,
	}, nil
}

// LastDecision returns the most recent cycle outcome.
func (r *Runner) LastDecision() Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Cycles returns how many cycles have run.
func (r *Runner) Cycles() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cycles
}

// Run blocks until the context is canceled. The first cycle runs
// immediately rather than one interval in.
func (r *Runner) Run(ctx context.Context) error {
	log.Info().
		Str("symbol", r.cfg.System.Symbol).
		Dur("interval", r.interval).
		Int("producers", len(r.producers)).
		Msg("live runner started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Anchor the loss window to the session start so the first cycles
	// are judged against the opening balance, not a stale window.
	r.governor.Reset(ctx)

	r.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("live runner stopped")
			return ctx.Err()
		case <-ticker.C:
			r.Cycle(ctx)
		}
	}
}

// Cycle runs one full decide-and-execute pass.
func (r *Runner) Cycle(ctx context.Context) {
	start := time.Now()
	d := r.cycle(ctx)
	metrics.CycleDuration.Observe(time.Since(start).Seconds())

	outcome := "completed"
	if d.Skipped != "" {
		outcome = d.Skipped
	}
	metrics.CyclesTotal.WithLabelValues(outcome).Inc()

	r.mu.Lock()
	r.last = d
	r.cycles++
	r.mu.Unlock()
}

func (r *Runner) cycle(ctx context.Context) Decision {
	d := Decision{At: time.Now()}

	r.governor.Update(ctx)
	if r.governor.Halted() {
		metrics.RiskHalted.Set(1)
		log.Warn().Msg("cycle skipped, risk governor halted")
		d.Skipped = "halted"
		return d
	}
	metrics.RiskHalted.Set(0)

	price := r.data.Price(ctx)
	if !price.Usable() {
		log.Warn().Msg("cycle skipped, no usable price")
		d.Skipped = "skipped"
		return d
	}
	if price.State == market.Stale {
		log.Warn().Dur("age", price.Age).Msg("trading on a stale price")
	}

	combined := r.evaluate(ctx)
	d.Combined = combined

	log.Info().
		Float64("value", combined.Value).
		Float64("confidence", combined.Confidence).
		Strs("reasons", combined.Reasons).
		Msg("cycle evaluated")

	if !r.aggregator.ShouldTrade(combined) {
		return d
	}

	accountValue, err := r.governor.AccountValue(ctx)
	if err != nil {
		if errors.Is(err, risk.ErrAccountUnknown) {
			log.Warn().Msg("trade refused, account value unknown")
			d.Skipped = "skipped"
			return d
		}
		log.Error().Err(err).Msg("account value lookup failed")
		d.Skipped = "skipped"
		return d
	}
	metrics.AccountValue.Set(accountValue)

	side := signal.OrderSide(combined.Value)
	size := signal.PositionSize(combined.Value, accountValue, price.Value)
	if size <= 0 {
		return d
	}

	receipt, err := r.gateway.Submit(ctx, side, size)
	if err != nil {
		log.Error().Err(err).Msg("order submission failed")
		return d
	}
	d.Traded = receipt.Accepted
	return d
}

// evaluate collects one vote per enabled producer. A failing producer
// loses its vote for the cycle, nothing more.
func (r *Runner) evaluate(ctx context.Context) signal.Combined {
	view := guardedView{r.data}
	signals := make([]signal.Signal, 0, len(r.producers))
	for _, p := range r.producers {
		if !p.Enabled() {
			continue
		}
		s, err := p.Produce(ctx, view)
		if err != nil {
			log.Warn().Err(err).Str("strategy", p.Name()).Msg("producer error, vote skipped")
			continue
		}
		signals = append(signals, s)
	}
	return r.aggregator.Combine(signals)
}

// guardedView exposes the guarded feed through the producer-facing
// interface. Stale prices pass through; unavailable ones surface as
// ErrNoData so the producer abstains.
type guardedView struct {
	g *market.Guarded
}

func (v guardedView) CurrentPrice(ctx context.Context) (float64, error) {
	q := v.g.Price(ctx)
	if !q.Usable() {
		return 0, market.ErrNoData
	}
	return q.Value, nil
}

func (v guardedView) Candles(ctx context.Context, timeframe string, n int) (market.Series, error) {
	return v.g.Candles(ctx, timeframe, n)
}
