// Package store persists accounts, trade history, and watchlists.
//
// All implementations provide single-writer-per-account semantics: a trade
// delta is applied only when the caller's snapshot version matches the
// stored one, otherwise ErrConflict tells the caller to reload and redo the
// whole operation.
package store

import (
	"context"
	"errors"

	"github.com/MrBlankCoding/StockDashboard/account"
	"github.com/MrBlankCoding/StockDashboard/ledger"
)

var (
	// ErrNotFound means no account exists for the given id.
	ErrNotFound = errors.New("account not found")
	// ErrExists rejects creating an account whose id is taken.
	ErrExists = errors.New("account already exists")
	// ErrConflict means the delta was computed against a stale snapshot.
	ErrConflict = errors.New("account modified concurrently")
)

// Store is the durable side of the ledger. GetAccount returns a snapshot
// (including Version); ApplyTrade applies a delta conditionally against
// expectedVersion and returns the refreshed account.
type Store interface {
	CreateAccount(ctx context.Context, acct account.Account) error
	GetAccount(ctx context.Context, id string) (account.Account, error)
	ApplyTrade(ctx context.Context, accountID string, delta ledger.TradeDelta, expectedVersion int64) (account.Account, error)

	// ListTrades returns history newest first, at most limit records
	// (limit <= 0 means no cap).
	ListTrades(ctx context.Context, accountID string, limit int) ([]account.TradeRecord, error)

	AddWatch(ctx context.Context, accountID, symbol string) error
	RemoveWatch(ctx context.Context, accountID, symbol string) error
	Watchlist(ctx context.Context, accountID string) ([]string, error)

	Close() error
}
