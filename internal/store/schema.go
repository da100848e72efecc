package store

const schemaDDL = `
CREATE TABLE IF NOT EXISTS daily_prices (
	instrument  TEXT NOT NULL,
	trade_date  TEXT NOT NULL,
	open        REAL NOT NULL,
	high        REAL NOT NULL,
	low         REAL NOT NULL,
	close       REAL NOT NULL,
	volume      INTEGER NOT NULL,
	inserted_at TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	PRIMARY KEY (instrument, trade_date)
);

CREATE INDEX IF NOT EXISTS idx_daily_prices_instrument_date
	ON daily_prices (instrument, trade_date DESC);

CREATE INDEX IF NOT EXISTS idx_daily_prices_date
	ON daily_prices (trade_date DESC);

CREATE TABLE IF NOT EXISTS stock_master (
	code       TEXT PRIMARY KEY,
	market     TEXT NOT NULL,
	name       TEXT NOT NULL,
	is_active  INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stock_master_market ON stock_master (market);

CREATE TABLE IF NOT EXISTS db_metadata (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// migrate applies the full schema. It is idempotent: every statement is
// IF NOT EXISTS, so re-running it against an already-migrated database is
// a no-op.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(schemaDDL)
	return err
}
