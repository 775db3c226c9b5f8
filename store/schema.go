package store

// Decimal columns are stored as canonical strings: SQLite would coerce
// REAL and lose cents over repeated trades, and the same text encoding
// keeps the two SQL backends interchangeable.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	balance TEXT NOT NULL,
	opening_balance TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	account_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	shares TEXT NOT NULL,
	avg_price TEXT NOT NULL,
	PRIMARY KEY (account_id, symbol)
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	type TEXT NOT NULL,
	symbol TEXT NOT NULL,
	shares TEXT NOT NULL,
	price TEXT NOT NULL,
	total TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	executed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_account ON trades(account_id, trade_id);

CREATE TABLE IF NOT EXISTS watchlist (
	account_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	added_at DATETIME NOT NULL,
	PRIMARY KEY (account_id, symbol)
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	balance TEXT NOT NULL,
	opening_balance TEXT NOT NULL,
	version BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	account_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	shares TEXT NOT NULL,
	avg_price TEXT NOT NULL,
	PRIMARY KEY (account_id, symbol)
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	type TEXT NOT NULL,
	symbol TEXT NOT NULL,
	shares TEXT NOT NULL,
	price TEXT NOT NULL,
	total TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	executed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_account ON trades(account_id, trade_id);

CREATE TABLE IF NOT EXISTS watchlist (
	account_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	added_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (account_id, symbol)
);
`
