package journal

const Schema = `
CREATE TABLE IF NOT EXISTS orders (
	order_id          TEXT PRIMARY KEY,
	side              TEXT NOT NULL,
	requested_size    REAL NOT NULL,
	adjusted_size     REAL NOT NULL,
	submitted_at      TIMESTAMP NOT NULL,
	status            TEXT NOT NULL,
	exchange_order_id TEXT,
	fill_price        REAL,
	error_detail      TEXT
);

CREATE TABLE IF NOT EXISTS trades (
	run_id     TEXT,
	time       TIMESTAMP NOT NULL,
	side       TEXT NOT NULL,
	size       REAL NOT NULL,
	price      REAL NOT NULL,
	gross      REAL NOT NULL,
	commission REAL NOT NULL,
	reason     TEXT
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id, time);

CREATE TABLE IF NOT EXISTS equity (
	run_id      TEXT,
	time        TIMESTAMP NOT NULL,
	cash        REAL NOT NULL,
	position    REAL NOT NULL,
	mark_price  REAL NOT NULL,
	total_value REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, time);
`
