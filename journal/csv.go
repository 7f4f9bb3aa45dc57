package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	orders *csv.Writer
	trades *csv.Writer
	equity *csv.Writer
	of     *os.File
	tf     *os.File
	ef     *os.File
}

func NewCSV(ordersPath, tradesPath, equityPath string) (*CSVJournal, error) {
	of, err := os.Create(ordersPath)
	if err != nil {
		return nil, err
	}
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		return nil, err
	}

	ow := csv.NewWriter(of)
	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	if err := ow.Write([]string{"order_id", "side", "requested_size", "adjusted_size", "submitted_at", "status", "exchange_order_id", "fill_price", "error_detail"}); err != nil {
		return nil, err
	}
	if err := tw.Write([]string{"run_id", "time", "side", "size", "price", "gross", "commission", "reason"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"run_id", "time", "cash", "position", "mark_price", "total_value"}); err != nil {
		return nil, err
	}

	for _, w := range []*csv.Writer{ow, tw, ew} {
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
	}

	return &CSVJournal{ow, tw, ew, of, tf, ef}, nil
}

func (j *CSVJournal) RecordOrder(o OrderRecord) error {
	err := j.orders.Write([]string{
		o.OrderID,
		o.Side,
		f(o.RequestedSize),
		f(o.AdjustedSize),
		o.SubmittedAt.Format(time.RFC3339),
		o.Status,
		o.ExchangeOrderID,
		f(o.FillPrice),
		o.ErrorDetail,
	})
	if err != nil {
		return err
	}
	j.orders.Flush()
	return j.orders.Error()
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.RunID,
		t.Time.Format(time.RFC3339),
		t.Side,
		f(t.Size),
		f(t.Price),
		f(t.Gross),
		f(t.Commission),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.RunID,
		e.Time.Format(time.RFC3339),
		f(e.Cash),
		f(e.Position),
		f(e.MarkPrice),
		f(e.TotalValue),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	for _, w := range []*csv.Writer{j.orders, j.trades, j.equity} {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	for _, file := range []*os.File{j.of, j.tf, j.ef} {
		if err := file.Close(); err != nil {
			return err
		}
	}
	return nil
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
