// Package journal persists what the trading core did: live order
// attempts, simulated trades, and equity curves.
package journal

import "time"

// OrderRecord mirrors one execution-gateway submission attempt.
type OrderRecord struct {
	OrderID         string
	Side            string
	RequestedSize   float64
	AdjustedSize    float64
	SubmittedAt     time.Time
	Status          string
	ExchangeOrderID string
	FillPrice       float64
	ErrorDetail     string
}

// TradeRecord mirrors one executed (simulated or live) trade.
type TradeRecord struct {
	RunID      string
	Time       time.Time
	Side       string
	Size       float64
	Price      float64
	Gross      float64
	Commission float64
	Reason     string
}

// EquitySnapshot is one bar of portfolio state.
type EquitySnapshot struct {
	RunID      string
	Time       time.Time
	Cash       float64
	Position   float64
	MarkPrice  float64
	TotalValue float64
}

type Journal interface {
	RecordOrder(OrderRecord) error
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything; handy when journaling is disabled.
type Nop struct{}

func (Nop) RecordOrder(OrderRecord) error     { return nil }
func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
