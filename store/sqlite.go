package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/MrBlankCoding/StockDashboard/account"
	"github.com/MrBlankCoding/StockDashboard/ledger"
)

// SQLiteStore keeps all account state in a single SQLite file. It is the
// default backend for single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// The version check relies on there being a single writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

var _ Store = (*SQLiteStore)(nil)

func (s *SQLiteStore) CreateAccount(ctx context.Context, acct account.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, balance, opening_balance, version, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		acct.ID, acct.Balance.String(), acct.OpeningBalance.String(), acct.Version, acct.CreatedAt,
	)
	if err != nil {
		if isSQLiteConstraint(err) {
			return fmt.Errorf("create account %s: %w", acct.ID, ErrExists)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func isSQLiteConstraint(err error) bool {
	// Matching on the message avoids importing the driver's cgo error
	// types just for this check.
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}

func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (account.Account, error) {
	var (
		acct      account.Account
		balance   string
		opening   string
		createdAt time.Time
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, balance, opening_balance, version, created_at FROM accounts WHERE id = ?`, id)
	if err := row.Scan(&acct.ID, &balance, &opening, &acct.Version, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return account.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
		}
		return account.Account{}, fmt.Errorf("load account: %w", err)
	}

	var err error
	if acct.Balance, err = decimal.NewFromString(balance); err != nil {
		return account.Account{}, fmt.Errorf("corrupt balance %q: %w", balance, err)
	}
	if acct.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
		return account.Account{}, fmt.Errorf("corrupt opening balance %q: %w", opening, err)
	}
	acct.CreatedAt = createdAt

	acct.Portfolio = make(map[string]account.Position)
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, shares, avg_price FROM positions WHERE account_id = ?`, id)
	if err != nil {
		return account.Account{}, fmt.Errorf("load positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pos account.Position
		var shares, avgPrice string
		if err := rows.Scan(&pos.Symbol, &shares, &avgPrice); err != nil {
			return account.Account{}, fmt.Errorf("scan position: %w", err)
		}
		if pos.Shares, err = decimal.NewFromString(shares); err != nil {
			return account.Account{}, fmt.Errorf("corrupt shares %q: %w", shares, err)
		}
		if pos.AvgPrice, err = decimal.NewFromString(avgPrice); err != nil {
			return account.Account{}, fmt.Errorf("corrupt avg price %q: %w", avgPrice, err)
		}
		acct.Portfolio[pos.Symbol] = pos
	}
	if err := rows.Err(); err != nil {
		return account.Account{}, fmt.Errorf("load positions: %w", err)
	}
	return acct, nil
}

func (s *SQLiteStore) ApplyTrade(ctx context.Context, accountID string, delta ledger.TradeDelta, expectedVersion int64) (account.Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return account.Account{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// Balances are text, so the delta is applied in Go: read the current
	// balance inside the transaction, then update conditionally on the
	// version the caller's snapshot was taken at.
	var rawBalance string
	var version int64
	err = tx.QueryRowContext(ctx,
		`SELECT balance, version FROM accounts WHERE id = ?`, accountID).Scan(&rawBalance, &version)
	if err == sql.ErrNoRows {
		return account.Account{}, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	if err != nil {
		return account.Account{}, fmt.Errorf("load balance: %w", err)
	}
	if version != expectedVersion {
		return account.Account{}, fmt.Errorf("account %s version %d, snapshot %d: %w",
			accountID, version, expectedVersion, ErrConflict)
	}

	balance, err := decimal.NewFromString(rawBalance)
	if err != nil {
		return account.Account{}, fmt.Errorf("corrupt balance %q: %w", rawBalance, err)
	}
	newBalance := balance.Add(delta.BalanceChange)

	res, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		newBalance.String(), accountID, expectedVersion,
	)
	if err != nil {
		return account.Account{}, fmt.Errorf("update balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return account.Account{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return account.Account{}, fmt.Errorf("account %s version %d: %w", accountID, expectedVersion, ErrConflict)
	}

	if delta.Position.Remove {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM positions WHERE account_id = ? AND symbol = ?`,
			accountID, delta.Position.Symbol); err != nil {
			return account.Account{}, fmt.Errorf("delete position: %w", err)
		}
	} else {
		pos := delta.Position.Position
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO positions (account_id, symbol, shares, avg_price)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(account_id, symbol)
			DO UPDATE SET shares = excluded.shares, avg_price = excluded.avg_price`,
			accountID, pos.Symbol, pos.Shares.String(), pos.AvgPrice.String()); err != nil {
			return account.Account{}, fmt.Errorf("upsert position: %w", err)
		}
	}

	rec := delta.Record
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO trades (trade_id, account_id, type, symbol, shares, price, total, reason, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, accountID, string(rec.Type), rec.Symbol,
		rec.Shares.String(), rec.Price.String(), rec.Total.String(), rec.Reason, rec.Timestamp,
	); err != nil {
		return account.Account{}, fmt.Errorf("append trade: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return account.Account{}, fmt.Errorf("commit: %w", err)
	}
	return s.GetAccount(ctx, accountID)
}

func (s *SQLiteStore) ListTrades(ctx context.Context, accountID string, limit int) ([]account.TradeRecord, error) {
	q := `SELECT trade_id, type, symbol, shares, price, total, reason, executed_at
		FROM trades WHERE account_id = ? ORDER BY trade_id DESC`
	args := []any{accountID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	out := make([]account.TradeRecord, 0)
	for rows.Next() {
		var rec account.TradeRecord
		var typ, shares, price, total string
		if err := rows.Scan(&rec.ID, &typ, &rec.Symbol, &shares, &price, &total, &rec.Reason, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		rec.Type = account.TradeType(typ)
		if rec.Shares, err = decimal.NewFromString(shares); err != nil {
			return nil, fmt.Errorf("corrupt shares %q: %w", shares, err)
		}
		if rec.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("corrupt price %q: %w", price, err)
		}
		if rec.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("corrupt total %q: %w", total, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddWatch(ctx context.Context, accountID, symbol string) error {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watchlist (account_id, symbol, added_at) VALUES (?, ?, ?)
		ON CONFLICT(account_id, symbol) DO NOTHING`,
		accountID, symbol, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add watch: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RemoveWatch(ctx context.Context, accountID, symbol string) error {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM watchlist WHERE account_id = ? AND symbol = ?`, accountID, symbol)
	if err != nil {
		return fmt.Errorf("remove watch: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Watchlist(ctx context.Context, accountID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol FROM watchlist WHERE account_id = ? ORDER BY symbol`, accountID)
	if err != nil {
		return nil, fmt.Errorf("watchlist: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan watchlist: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
