package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeType distinguishes the two economic events an account can record.
type TradeType string

const (
	Buy  TradeType = "BUY"
	Sell TradeType = "SELL"
)

// Position is a holding in a single symbol. A position only exists while
// Shares > 0; selling down to zero removes the entry from the portfolio
// instead of leaving it behind with zero shares.
type Position struct {
	Symbol   string          `json:"symbol"`
	Shares   decimal.Decimal `json:"shares"`
	AvgPrice decimal.Decimal `json:"avg_price"`
}

// CostBasis returns shares * avg price, the money paid for what is still held.
func (p Position) CostBasis() decimal.Decimal {
	return p.Shares.Mul(p.AvgPrice)
}

// TradeRecord is one executed trade. Records are append-only: once written
// to history they are never mutated or reordered.
type TradeRecord struct {
	ID        string          `json:"id"`
	Type      TradeType       `json:"type"`
	Symbol    string          `json:"symbol"`
	Shares    decimal.Decimal `json:"shares"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	Reason    string          `json:"reason,omitempty"` // buys only
	Timestamp time.Time       `json:"timestamp"`
}

// Account is a snapshot of one paper-trading account. The ledger operates on
// snapshots and returns new ones; the store owns the durable copy and bumps
// Version on every applied trade so stale snapshots are detected.
type Account struct {
	ID             string              `json:"id"`
	Balance        decimal.Decimal     `json:"balance"`
	OpeningBalance decimal.Decimal     `json:"opening_balance"`
	Portfolio      map[string]Position `json:"portfolio"`
	CreatedAt      time.Time           `json:"created_at"`
	Version        int64               `json:"version"`
}

// New returns a fresh account with the given opening cash, an empty
// portfolio, and no history.
func New(id string, openingBalance decimal.Decimal) Account {
	return Account{
		ID:             id,
		Balance:        openingBalance,
		OpeningBalance: openingBalance,
		Portfolio:      make(map[string]Position),
		CreatedAt:      time.Now().UTC(),
		Version:        1,
	}
}

// Clone returns a deep copy so callers can hand the snapshot around without
// sharing the portfolio map.
func (a Account) Clone() Account {
	out := a
	out.Portfolio = make(map[string]Position, len(a.Portfolio))
	for sym, pos := range a.Portfolio {
		out.Portfolio[sym] = pos
	}
	return out
}
