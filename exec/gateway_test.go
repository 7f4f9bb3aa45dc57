package exec

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/quant/signal"
)

type fakePlacer struct {
	calls   int
	lastReq PlaceRequest
	result  PlaceResult
	err     error
}

func (p *fakePlacer) PlaceOrder(_ context.Context, req PlaceRequest) (PlaceResult, error) {
	p.calls++
	p.lastReq = req
	return p.result, p.err
}

type fakeRiskControl struct {
	halted   bool
	adjust   func(proposed float64) float64
	checkErr error
}

func (r *fakeRiskControl) Halted() bool { return r.halted }

func (r *fakeRiskControl) CheckPositionSize(_ context.Context, proposed float64) (float64, error) {
	if r.checkErr != nil {
		return 0, r.checkErr
	}
	if r.adjust != nil {
		return r.adjust(proposed), nil
	}
	return proposed, nil
}

func newTestGateway(placer *fakePlacer, riskCtl *fakeRiskControl) (*Gateway, *time.Time) {
	g := NewGateway(placer, riskCtl, time.Minute, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g.clock = func() time.Time { return now }
	return g, &now
}

func TestSubmitAccepted(t *testing.T) {
	placer := &fakePlacer{result: PlaceResult{Accepted: true, OrderID: "ex-1", FillPrice: 0.25}}
	g, _ := newTestGateway(placer, &fakeRiskControl{})

	r, err := g.Submit(context.Background(), signal.Buy, 400)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	assert.True(t, r.Accepted)
	assert.Empty(t, r.Rejections)
	assert.Equal(t, StatusSuccess, r.Order.Status)
	assert.Equal(t, "ex-1", r.Order.ExchangeOrderID)
	assert.Equal(t, 0.25, r.Order.FillPrice)
	assert.Equal(t, 1, placer.calls)
	assert.Equal(t, 1, g.Ledger().Len())
}

func TestSubmitThrottled(t *testing.T) {
	placer := &fakePlacer{result: PlaceResult{Accepted: true}}
	g, now := newTestGateway(placer, &fakeRiskControl{})

	r, err := g.Submit(context.Background(), signal.Buy, 100)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	assert.True(t, r.Accepted)

	*now = now.Add(10 * time.Second)
	r, err = g.Submit(context.Background(), signal.Sell, 100)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	assert.False(t, r.Accepted)
	if assert.Len(t, r.Rejections, 1) {
		assert.Equal(t, GateThrottle, r.Rejections[0].Gate)
	}
	assert.Equal(t, 1, placer.calls, "throttled submission must not reach the market")
	assert.Equal(t, 1, g.Ledger().Len(), "throttled submissions leave no ledger entry")

	*now = now.Add(55 * time.Second)
	r, err = g.Submit(context.Background(), signal.Sell, 100)
	if err != nil {
		t.Fatalf("third submit: %v", err)
	}
	assert.True(t, r.Accepted)
	assert.Equal(t, 2, placer.calls)
}

func TestSubmitHalted(t *testing.T) {
	placer := &fakePlacer{}
	g, _ := newTestGateway(placer, &fakeRiskControl{halted: true})

	r, err := g.Submit(context.Background(), signal.Buy, 100)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	assert.False(t, r.Accepted)
	if assert.Len(t, r.Rejections, 1) {
		assert.Equal(t, GateRiskHalt, r.Rejections[0].Gate)
	}
	assert.Zero(t, placer.calls)
}

func TestSubmitReportsAllFailedGates(t *testing.T) {
	placer := &fakePlacer{result: PlaceResult{Accepted: true}}
	riskCtl := &fakeRiskControl{}
	g, now := newTestGateway(placer, riskCtl)

	if _, err := g.Submit(context.Background(), signal.Buy, 100); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	riskCtl.halted = true
	*now = now.Add(5 * time.Second)
	r, err := g.Submit(context.Background(), signal.Buy, 100)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	gates := make([]Gate, 0, len(r.Rejections))
	for _, rej := range r.Rejections {
		gates = append(gates, rej.Gate)
	}
	assert.ElementsMatch(t, []Gate{GateThrottle, GateRiskHalt}, gates)
}

func TestRejectionDoesNotConsumeThrottleWindow(t *testing.T) {
	placer := &fakePlacer{result: PlaceResult{Accepted: true}}
	riskCtl := &fakeRiskControl{halted: true}
	g, now := newTestGateway(placer, riskCtl)

	if _, err := g.Submit(context.Background(), signal.Buy, 100); err != nil {
		t.Fatalf("halted submit: %v", err)
	}

	riskCtl.halted = false
	*now = now.Add(time.Second)
	r, err := g.Submit(context.Background(), signal.Buy, 100)
	if err != nil {
		t.Fatalf("recovered submit: %v", err)
	}
	assert.True(t, r.Accepted, "gate rejections must not start the throttle window")
}

func TestFailedAttemptConsumesThrottleWindow(t *testing.T) {
	placer := &fakePlacer{result: PlaceResult{Accepted: false, Err: "insufficient funds"}}
	g, now := newTestGateway(placer, &fakeRiskControl{})

	r, err := g.Submit(context.Background(), signal.Buy, 100)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	assert.True(t, r.Accepted, "gates passed, so the attempt is recorded")
	assert.Equal(t, StatusFailed, r.Order.Status)
	assert.Equal(t, "insufficient funds", r.Order.ErrorDetail)

	*now = now.Add(10 * time.Second)
	r, err = g.Submit(context.Background(), signal.Buy, 100)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	assert.False(t, r.Accepted, "a failed market attempt still consumes the throttle window")
	assert.Equal(t, 1, placer.calls)
}

func TestSubmitPlacerError(t *testing.T) {
	placer := &fakePlacer{err: errors.New("connection reset")}
	g, _ := newTestGateway(placer, &fakeRiskControl{})

	r, err := g.Submit(context.Background(), signal.Sell, 50)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	assert.True(t, r.Accepted)
	assert.Equal(t, StatusError, r.Order.Status)
	assert.Equal(t, "connection reset", r.Order.ErrorDetail)
}

func TestSubmitPendingResult(t *testing.T) {
	placer := &fakePlacer{result: PlaceResult{Accepted: true, Pending: true, OrderID: "ex-7"}}
	g, _ := newTestGateway(placer, &fakeRiskControl{})

	r, err := g.Submit(context.Background(), signal.Buy, 50)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	assert.Equal(t, StatusPending, r.Order.Status)

	if err := g.Cancel(r.Order.ID); err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	o, _ := g.Order(r.Order.ID)
	assert.Equal(t, StatusCanceled, o.Status)
}

func TestSubmitClampsSize(t *testing.T) {
	placer := &fakePlacer{result: PlaceResult{Accepted: true}}
	riskCtl := &fakeRiskControl{adjust: func(proposed float64) float64 { return proposed / 2 }}
	g, _ := newTestGateway(placer, riskCtl)

	r, err := g.Submit(context.Background(), signal.Buy, 400)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	assert.Equal(t, 400.0, r.Order.RequestedSize)
	assert.Equal(t, 200.0, r.Order.AdjustedSize)
	assert.Equal(t, 200.0, placer.lastReq.Size)
}

func TestSubmitRefusesWithoutAccountValue(t *testing.T) {
	placer := &fakePlacer{result: PlaceResult{Accepted: true}}
	riskCtl := &fakeRiskControl{checkErr: errors.New("account value unknown")}
	g, _ := newTestGateway(placer, riskCtl)

	_, err := g.Submit(context.Background(), signal.Buy, 100)
	assert.Error(t, err)
	assert.Zero(t, placer.calls)
}
