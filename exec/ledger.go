package exec

import (
	"errors"
	"sync"
)

var (
	ErrOrderNotFound      = errors.New("exec: order not found")
	ErrOrderNotCancelable = errors.New("exec: order is not pending")
)

// Ledger is the append-only order history. One gateway owns the write
// path; readers take point-in-time snapshots instead of iterating live
// state.
type Ledger struct {
	mu     sync.Mutex
	orders []Order
	index  map[string]int
}

func NewLedger() *Ledger {
	return &Ledger{index: make(map[string]int)}
}

// Append records a new order.
func (l *Ledger) Append(o Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.index[o.ID] = len(l.orders)
	l.orders = append(l.orders, o)
}

// Get returns the order with the given ID.
func (l *Ledger) Get(orderID string) (Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[orderID]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return l.orders[i], nil
}

// Cancel transitions a pending order to canceled. Any other status is
// terminal and refuses the transition.
func (l *Ledger) Cancel(orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if l.orders[i].Status != StatusPending {
		return ErrOrderNotCancelable
	}
	l.orders[i].Status = StatusCanceled
	return nil
}

// Snapshot returns a copy of the ledger at this instant.
func (l *Ledger) Snapshot() []Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Order, len(l.orders))
	copy(out, l.orders)
	return out
}

// Len returns the number of recorded orders.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.orders)
}
