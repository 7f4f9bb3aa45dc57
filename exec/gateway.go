package exec

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/quant/journal"
	"github.com/rustyeddy/quant/metrics"
	"github.com/rustyeddy/quant/pkg/id"
	"github.com/rustyeddy/quant/signal"
)

// DefaultMinOrderInterval bounds order frequency regardless of how
// volatile the signals get.
const DefaultMinOrderInterval = time.Minute

// Gate identifies a pre-submission safety check.
type Gate string

const (
	GateThrottle Gate = "throttle"
	GateRiskHalt Gate = "risk_halt"
)

// Rejection names a gate that refused the order and why.
type Rejection struct {
	Gate Gate
	Msg  string
}

// Receipt is the outcome of one Submit call. Either the gates rejected
// the attempt (Rejections non-empty, no Order recorded) or an Order was
// submitted and appended to the ledger with its result status.
type Receipt struct {
	Accepted   bool
	Order      Order
	Rejections []Rejection
}

// PlaceRequest is what the market-access collaborator receives. The
// gateway calls it at most once per accepted decision; retry safety is
// not assumed.
type PlaceRequest struct {
	Side  signal.Side
	Size  float64
	Type  string  // "market" or "limit"
	Price float64 // 0 for market orders
}

// PlaceResult is the collaborator's answer.
type PlaceResult struct {
	Accepted  bool
	Pending   bool // accepted but not yet filled
	OrderID   string
	FillPrice float64
	Err       string
}

// Placer submits orders to the market.
type Placer interface {
	PlaceOrder(ctx context.Context, req PlaceRequest) (PlaceResult, error)
}

// RiskControl is the slice of the risk governor the gateway needs.
type RiskControl interface {
	Halted() bool
	CheckPositionSize(ctx context.Context, proposed float64) (float64, error)
}

// Gateway enforces the throttle and risk-halt gates, clamps sizes, and
// keeps the append-only order ledger.
type Gateway struct {
	mu          sync.Mutex
	placer      Placer
	riskCtl     RiskControl
	minInterval time.Duration
	clock       func() time.Time
	lastAttempt time.Time
	ledger      *Ledger
	journal     journal.Journal
}

func NewGateway(placer Placer, riskCtl RiskControl, minInterval time.Duration, j journal.Journal) *Gateway {
	if minInterval <= 0 {
		minInterval = DefaultMinOrderInterval
	}
	if j == nil {
		j = journal.Nop{}
	}
	return &Gateway{
		placer:      placer,
		riskCtl:     riskCtl,
		minInterval: minInterval,
		clock:       time.Now,
		ledger:      NewLedger(),
		journal:     j,
	}
}

// Ledger exposes the order history for reporting layers.
func (g *Gateway) Ledger() *Ledger { return g.ledger }

// Submit runs both safety gates, re-clamps the size, and submits at
// most one order. A gate rejection does not touch the throttle timer or
// the market; any actual submission attempt consumes the throttle
// window, success or not.
func (g *Gateway) Submit(ctx context.Context, side signal.Side, size float64) (Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()

	var rejections []Rejection
	if !g.lastAttempt.IsZero() {
		if elapsed := now.Sub(g.lastAttempt); elapsed < g.minInterval {
			rejections = append(rejections, Rejection{
				Gate: GateThrottle,
				Msg: fmt.Sprintf("last order %s ago, minimum interval %s",
					elapsed.Round(time.Second), g.minInterval),
			})
		}
	}
	if g.riskCtl.Halted() {
		rejections = append(rejections, Rejection{
			Gate: GateRiskHalt,
			Msg:  "daily loss limit reached",
		})
	}
	if len(rejections) > 0 {
		for _, r := range rejections {
			metrics.RejectionsTotal.WithLabelValues(string(r.Gate)).Inc()
			log.Warn().
				Str("gate", string(r.Gate)).
				Str("side", string(side)).
				Float64("size", size).
				Msg(r.Msg)
		}
		return Receipt{Rejections: rejections}, nil
	}

	adjusted, err := g.riskCtl.CheckPositionSize(ctx, size)
	if err != nil {
		return Receipt{}, fmt.Errorf("position size check: %w", err)
	}
	if adjusted < size*0.9 {
		log.Info().
			Float64("requested", size).
			Float64("adjusted", adjusted).
			Msg("order size reduced by risk limit")
	}

	order := Order{
		ID:            id.New(),
		Side:          side,
		RequestedSize: size,
		AdjustedSize:  adjusted,
		SubmittedAt:   now,
		Status:        StatusPending,
	}

	res, err := g.placer.PlaceOrder(ctx, PlaceRequest{
		Side: side,
		Size: adjusted,
		Type: "market",
	})

	// A failed attempt still consumes the throttle window; rapid retry
	// storms are worse than a missed cycle.
	g.lastAttempt = g.clock()

	switch {
	case err != nil:
		order.Status = StatusError
		order.ErrorDetail = err.Error()
		log.Error().Err(err).
			Str("side", string(side)).
			Float64("size", adjusted).
			Msg("order submission error")
	case !res.Accepted:
		order.Status = StatusFailed
		order.ErrorDetail = res.Err
		log.Error().
			Str("side", string(side)).
			Float64("size", adjusted).
			Str("reason", res.Err).
			Msg("order rejected by market")
	case res.Pending:
		order.Status = StatusPending
		order.ExchangeOrderID = res.OrderID
	default:
		order.Status = StatusSuccess
		order.ExchangeOrderID = res.OrderID
		order.FillPrice = res.FillPrice
		log.Info().
			Str("order_id", order.ID).
			Str("exchange_order_id", res.OrderID).
			Str("side", string(side)).
			Float64("size", adjusted).
			Float64("fill_price", res.FillPrice).
			Msg("order submitted")
	}

	g.ledger.Append(order)
	metrics.OrdersTotal.WithLabelValues(string(order.Status)).Inc()

	if jerr := g.journal.RecordOrder(journal.OrderRecord{
		OrderID:         order.ID,
		Side:            string(order.Side),
		RequestedSize:   order.RequestedSize,
		AdjustedSize:    order.AdjustedSize,
		SubmittedAt:     order.SubmittedAt,
		Status:          string(order.Status),
		ExchangeOrderID: order.ExchangeOrderID,
		FillPrice:       order.FillPrice,
		ErrorDetail:     order.ErrorDetail,
	}); jerr != nil {
		log.Error().Err(jerr).Str("order_id", order.ID).Msg("journal write failed")
	}

	return Receipt{Accepted: true, Order: order}, nil
}

// Order looks up one order by ledger ID.
func (g *Gateway) Order(orderID string) (Order, error) {
	return g.ledger.Get(orderID)
}

// Cancel cancels a pending order in the ledger.
func (g *Gateway) Cancel(orderID string) error {
	return g.ledger.Cancel(orderID)
}
