package journal

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordOrder(o OrderRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO orders
		(order_id, side, requested_size, adjusted_size, submitted_at, status, exchange_order_id, fill_price, error_detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderID, o.Side, o.RequestedSize, o.AdjustedSize,
		o.SubmittedAt, o.Status, o.ExchangeOrderID, o.FillPrice, o.ErrorDetail,
	)
	return err
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(run_id, time, side, size, price, gross, commission, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.RunID, t.Time, t.Side, t.Size, t.Price, t.Gross, t.Commission, t.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, time, cash, position, mark_price, total_value)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Time, e.Cash, e.Position, e.MarkPrice, e.TotalValue,
	)
	return err
}

// ListTradesByRunID returns a run's trades in time order.
func (j *SQLiteJournal) ListTradesByRunID(ctx context.Context, runID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, time, side, size, price, gross, commission, reason
		FROM trades WHERE run_id = ? ORDER BY time`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.RunID, &t.Time, &t.Side, &t.Size, &t.Price, &t.Gross, &t.Commission, &t.Reason); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListEquityByRunID returns a run's equity curve in time order.
func (j *SQLiteJournal) ListEquityByRunID(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, time, cash, position, mark_price, total_value
		FROM equity WHERE run_id = ? ORDER BY time`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Time, &e.Cash, &e.Position, &e.MarkPrice, &e.TotalValue); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
