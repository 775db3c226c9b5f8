package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/MrBlankCoding/StockDashboard/account"
	"github.com/MrBlankCoding/StockDashboard/ledger"
)

// PostgresStore backs the account store with Postgres for multi-instance
// deployments. Same contract as SQLiteStore; the version column provides
// the conditional apply.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) CreateAccount(ctx context.Context, acct account.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, balance, opening_balance, version, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		acct.ID, acct.Balance.String(), acct.OpeningBalance.String(), acct.Version, acct.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("create account %s: %w", acct.ID, ErrExists)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (account.Account, error) {
	var (
		acct      account.Account
		balance   string
		opening   string
		createdAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, balance, opening_balance, version, created_at FROM accounts WHERE id = $1`, id).
		Scan(&acct.ID, &balance, &opening, &acct.Version, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return account.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return account.Account{}, fmt.Errorf("load account: %w", err)
	}

	if acct.Balance, err = decimal.NewFromString(balance); err != nil {
		return account.Account{}, fmt.Errorf("corrupt balance %q: %w", balance, err)
	}
	if acct.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
		return account.Account{}, fmt.Errorf("corrupt opening balance %q: %w", opening, err)
	}
	acct.CreatedAt = createdAt

	acct.Portfolio = make(map[string]account.Position)
	rows, err := s.pool.Query(ctx,
		`SELECT symbol, shares, avg_price FROM positions WHERE account_id = $1`, id)
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

func (s *PostgresStore) ApplyTrade(ctx context.Context, accountID string, delta ledger.TradeDelta, expectedVersion int64) (account.Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return account.Account{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var rawBalance string
	var version int64
	err = tx.QueryRow(ctx,
		`SELECT balance, version FROM accounts WHERE id = $1 FOR UPDATE`, accountID).
		Scan(&rawBalance, &version)
	if errors.Is(err, pgx.ErrNoRows) {
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

	tag, err := tx.Exec(ctx, `
		UPDATE accounts SET balance = $1, version = version + 1
		WHERE id = $2 AND version = $3`,
		newBalance.String(), accountID, expectedVersion,
	)
	if err != nil {
		return account.Account{}, fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return account.Account{}, fmt.Errorf("account %s version %d: %w", accountID, expectedVersion, ErrConflict)
	}

	if delta.Position.Remove {
		if _, err := tx.Exec(ctx,
			`DELETE FROM positions WHERE account_id = $1 AND symbol = $2`,
			accountID, delta.Position.Symbol); err != nil {
			return account.Account{}, fmt.Errorf("delete position: %w", err)
		}
	} else {
		pos := delta.Position.Position
		if _, err := tx.Exec(ctx, `
			INSERT INTO positions (account_id, symbol, shares, avg_price)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (account_id, symbol)
			DO UPDATE SET shares = EXCLUDED.shares, avg_price = EXCLUDED.avg_price`,
			accountID, pos.Symbol, pos.Shares.String(), pos.AvgPrice.String()); err != nil {
			return account.Account{}, fmt.Errorf("upsert position: %w", err)
		}
	}

	rec := delta.Record
	if _, err := tx.Exec(ctx, `
		INSERT INTO trades (trade_id, account_id, type, symbol, shares, price, total, reason, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, accountID, string(rec.Type), rec.Symbol,
		rec.Shares.String(), rec.Price.String(), rec.Total.String(), rec.Reason, rec.Timestamp,
	); err != nil {
		return account.Account{}, fmt.Errorf("append trade: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return account.Account{}, fmt.Errorf("commit: %w", err)
	}
	return s.GetAccount(ctx, accountID)
}

func (s *PostgresStore) ListTrades(ctx context.Context, accountID string, limit int) ([]account.TradeRecord, error) {
	q := `SELECT trade_id, type, symbol, shares, price, total, reason, executed_at
		FROM trades WHERE account_id = $1 ORDER BY trade_id DESC`
	args := []any{accountID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
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

func (s *PostgresStore) AddWatch(ctx context.Context, accountID, symbol string) error {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO watchlist (account_id, symbol, added_at) VALUES ($1, $2, $3)
		ON CONFLICT (account_id, symbol) DO NOTHING`,
		accountID, symbol, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add watch: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveWatch(ctx context.Context, accountID, symbol string) error {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM watchlist WHERE account_id = $1 AND symbol = $2`, accountID, symbol)
	if err != nil {
		return fmt.Errorf("remove watch: %w", err)
	}
	return nil
}

func (s *PostgresStore) Watchlist(ctx context.Context, accountID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT symbol FROM watchlist WHERE account_id = $1 ORDER BY symbol`, accountID)
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

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
