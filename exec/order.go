// Package exec is the single path through which a sizing decision
// becomes an exchange-facing order.
package exec

import (
	"time"

	"github.com/rustyeddy/quant/signal"
)

// Status is an order's lifecycle state. Orders never change after
// reaching a terminal status, except pending orders which may be
// canceled.
type Status string

const (
	StatusPending  Status = "pending"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusError    Status = "error"
	StatusCanceled Status = "canceled"
)

// Order is one submission attempt.
type Order struct {
	ID              string
	Side            signal.Side
	RequestedSize   float64
	AdjustedSize    float64
	SubmittedAt     time.Time
	Status          Status
	ExchangeOrderID string
	FillPrice       float64
	ErrorDetail     string
}
