// Package backtest replays historical candles through the signal
// pipeline and accounts for every simulated fill.
package backtest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/quant/indicators"
	"github.com/rustyeddy/quant/journal"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/pkg/id"
	"github.com/rustyeddy/quant/signal"
)

const (
	// MinHistory is the minimum candle count a run needs. Below this the
	// longer-warmup producers never become ready and every bar would be
	// a silent no-op.
	MinHistory = 50

	// DefaultCommissionRate is the symmetric per-side fee applied to
	// every simulated fill.
	DefaultCommissionRate = 0.001
)

// Trade is one simulated fill.
type Trade struct {
	Time       time.Time
	Side       signal.Side
	Size       float64
	Price      float64
	Gross      float64
	Commission float64
	Reason     string
}

// PortfolioState is the portfolio marked to one bar's close.
type PortfolioState struct {
	Time       time.Time
	Cash       float64
	Position   float64
	MarkPrice  float64
	TotalValue float64
}

// Result is everything one run produced.
type Result struct {
	RunID          string
	InitialCapital float64
	FinalValue     float64
	States         []PortfolioState
	Trades         []Trade
	Report         Report
}

// Engine replays candles bar by bar. Position sizing uses simulated
// equity directly; the live risk governor is not consulted, so sim
// sizing can exceed what the governor would allow in production.
type Engine struct {
	producers  []signal.Producer
	aggregator *signal.Aggregator
	commission float64
	timeframe  string
	journal    journal.Journal
}

// Option configures an Engine.
type Option func(*Engine)

// WithCommission overrides the per-side commission rate.
func WithCommission(rate float64) Option {
	return func(e *Engine) {
		if rate >= 0 {
			e.commission = rate
		}
	}
}

// WithJournal records trades and equity snapshots to the given journal.
func WithJournal(j journal.Journal) Option {
	return func(e *Engine) {
		if j != nil {
			e.journal = j
		}
	}
}

// WithTimeframe sets the bar-spacing label reported for the run.
func WithTimeframe(tf string) Option {
	return func(e *Engine) {
		if tf != "" {
			e.timeframe = tf
		}
	}
}

func NewEngine(producers []signal.Producer, aggregator *signal.Aggregator, opts ...Option) *Engine {
	e := &Engine{
		producers:  producers,
		aggregator: aggregator,
		commission: DefaultCommissionRate,
		timeframe:  "1H",
		journal:    journal.Nop{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// histView serves producers a window of history ending at one bar, so a
// strategy evaluated at bar i can never see bar i+1.
type histView struct {
	candles market.Series
	upto    int // inclusive index of the current bar
}

func (v *histView) CurrentPrice(context.Context) (float64, error) {
	return v.candles[v.upto].Close, nil
}

// Candles serves the replay series whatever timeframe is requested. A
// single-feed replay has only one series; producers written for coarser
// frames read the base bars instead of losing their vote every bar.
func (v *histView) Candles(_ context.Context, _ string, n int) (market.Series, error) {
	visible := v.candles[:v.upto+1]
	return visible.Window(n), nil
}

// Run replays the candles oldest-first against initialCapital of cash
// and no position.
func (e *Engine) Run(ctx context.Context, candles market.Series, initialCapital float64) (*Result, error) {
	if len(candles) < MinHistory {
		return nil, fmt.Errorf("backtest needs at least %d candles, got %d: %w",
			MinHistory, len(candles), indicators.ErrInsufficientHistory)
	}
	if initialCapital <= 0 {
		return nil, fmt.Errorf("initial capital must be positive, got %v", initialCapital)
	}

	runID := id.New()
	cash := initialCapital
	position := 0.0

	res := &Result{
		RunID:          runID,
		InitialCapital: initialCapital,
		States:         make([]PortfolioState, 0, len(candles)-MinHistory),
	}

	log.Info().
		Str("run_id", runID).
		Int("candles", len(candles)).
		Str("timeframe", e.timeframe).
		Float64("initial_capital", initialCapital).
		Float64("commission_rate", e.commission).
		Msg("backtest started")

	view := &histView{candles: candles}
	for i := MinHistory; i < len(candles); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		view.upto = i
		bar := candles[i]

		combined := e.evaluate(ctx, view)
		if e.aggregator.ShouldTrade(combined) {
			equity := cash + position*bar.Close
			side := signal.OrderSide(combined.Value)
			size := signal.PositionSize(combined.Value, equity, bar.Close)
			if t, ok := e.fill(side, size, bar, combined, &cash, &position); ok {
				res.Trades = append(res.Trades, t)
				e.recordTrade(runID, t)
			}
		}

		state := PortfolioState{
			Time:       bar.Time,
			Cash:       cash,
			Position:   position,
			MarkPrice:  bar.Close,
			TotalValue: cash + position*bar.Close,
		}
		res.States = append(res.States, state)
		e.recordEquity(runID, state)
	}

	// Exactly MinHistory candles is valid input that replays zero bars.
	res.FinalValue = initialCapital
	if len(res.States) > 0 {
		res.FinalValue = res.States[len(res.States)-1].TotalValue
	}
	res.Report = ComputeReport(initialCapital, res.States, res.Trades)

	log.Info().
		Str("run_id", runID).
		Int("trades", len(res.Trades)).
		Float64("final_value", res.FinalValue).
		Float64("total_return_pct", res.Report.TotalReturnPct).
		Msg("backtest finished")

	return res, nil
}

// evaluate collects one signal per enabled producer and blends them. A
// producer error costs that producer its vote for the bar, nothing more.
func (e *Engine) evaluate(ctx context.Context, view market.View) signal.Combined {
	signals := make([]signal.Signal, 0, len(e.producers))
	for _, p := range e.producers {
		if !p.Enabled() {
			continue
		}
		s, err := p.Produce(ctx, view)
		if err != nil {
			log.Debug().Err(err).Str("strategy", p.Name()).Msg("producer error, vote skipped")
			continue
		}
		signals = append(signals, s)
	}
	return e.aggregator.Combine(signals)
}

// fill applies one trade to the portfolio. Unaffordable trades are
// skipped rather than partially filled.
func (e *Engine) fill(side signal.Side, size float64, bar market.Candle, combined signal.Combined, cash, position *float64) (Trade, bool) {
	if size <= 0 {
		return Trade{}, false
	}
	gross := size * bar.Close
	commission := gross * e.commission

	switch side {
	case signal.Buy:
		cost := gross + commission
		if *cash < cost {
			log.Debug().
				Float64("cost", cost).
				Float64("cash", *cash).
				Time("bar", bar.Time).
				Msg("buy skipped, insufficient cash")
			return Trade{}, false
		}
		*cash -= cost
		*position += size
	case signal.Sell:
		if *position < size {
			log.Debug().
				Float64("size", size).
				Float64("position", *position).
				Time("bar", bar.Time).
				Msg("sell skipped, insufficient position")
			return Trade{}, false
		}
		*cash += gross - commission
		*position -= size
	default:
		return Trade{}, false
	}

	return Trade{
		Time:       bar.Time,
		Side:       side,
		Size:       size,
		Price:      bar.Close,
		Gross:      gross,
		Commission: commission,
		Reason:     strings.Join(combined.Reasons, "; "),
	}, true
}

func (e *Engine) recordTrade(runID string, t Trade) {
	err := e.journal.RecordTrade(journal.TradeRecord{
		RunID:      runID,
		Time:       t.Time,
		Side:       string(t.Side),
		Size:       t.Size,
		Price:      t.Price,
		Gross:      t.Gross,
		Commission: t.Commission,
		Reason:     t.Reason,
	})
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("trade journal write failed")
	}
}

func (e *Engine) recordEquity(runID string, s PortfolioState) {
	err := e.journal.RecordEquity(journal.EquitySnapshot{
		RunID:      runID,
		Time:       s.Time,
		Cash:       s.Cash,
		Position:   s.Position,
		MarkPrice:  s.MarkPrice,
		TotalValue: s.TotalValue,
	})
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("equity journal write failed")
	}
}
