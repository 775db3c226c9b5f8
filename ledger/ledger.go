// Package ledger computes account-state transitions for paper trades.
//
// The ledger is pure decision logic: it receives an account snapshot, does
// the buy/sell arithmetic, and returns both the new snapshot and a delta the
// store can apply conditionally. It performs no I/O and never blocks, so
// consistency under concurrent trades is the store's problem (version check
// on apply), not the ledger's.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrBlankCoding/StockDashboard/account"
	"github.com/MrBlankCoding/StockDashboard/internal/id"
)

var (
	// ErrInvalidInput rejects non-positive share counts or prices.
	ErrInvalidInput = errors.New("shares and price must be positive")
	// ErrInsufficientFunds rejects a buy whose total cost exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientShares rejects a sell of more shares than are held.
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrPriceUnavailable marks a quote the gateway could not produce.
	ErrPriceUnavailable = errors.New("price unavailable")
)

// PositionUpdate is the upsert-or-delete half of a trade delta. Remove set
// means the symbol leaves the portfolio; otherwise Position replaces
// whatever the portfolio held for that symbol.
type PositionUpdate struct {
	Symbol   string
	Remove   bool
	Position account.Position
}

// TradeDelta describes one trade as the minimal change to persisted state:
// a signed balance change, one position upsert/delete, and the history
// record to append. The store applies it atomically against an expected
// account version.
type TradeDelta struct {
	BalanceChange decimal.Decimal
	Position      PositionUpdate
	Record        account.TradeRecord
}

// Result carries both forms of the outcome: the full post-trade snapshot
// for callers that render it, and the delta for the store.
type Result struct {
	Account account.Account
	Delta   TradeDelta
}

// Buy purchases shares at price, debiting the account and folding the lot
// into the position's weighted-average cost basis. The input snapshot is
// not modified; on error it is the only account state there is.
func Buy(acct account.Account, symbol string, shares, price decimal.Decimal, reason string) (Result, error) {
	if !shares.IsPositive() || !price.IsPositive() {
		return Result{}, fmt.Errorf("buy %s: %w", symbol, ErrInvalidInput)
	}

	totalCost := shares.Mul(price)
	if totalCost.GreaterThan(acct.Balance) {
		return Result{}, fmt.Errorf("buy %s: cost %s exceeds balance %s: %w",
			symbol, totalCost, acct.Balance, ErrInsufficientFunds)
	}

	existing := acct.Portfolio[symbol] // zero value when absent
	newShares := existing.Shares.Add(shares)

	// Weighted-average cost basis. newShares > 0 always holds here: shares
	// is positive and existing.Shares is never negative.
	oldCost := existing.Shares.Mul(existing.AvgPrice)
	newAvgPrice := oldCost.Add(totalCost).Div(newShares)

	pos := account.Position{Symbol: symbol, Shares: newShares, AvgPrice: newAvgPrice}
	rec := account.TradeRecord{
		ID:        id.New(),
		Type:      account.Buy,
		Symbol:    symbol,
		Shares:    shares,
		Price:     price,
		Total:     totalCost,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}

	next := acct.Clone()
	next.Balance = next.Balance.Sub(totalCost)
	next.Portfolio[symbol] = pos

	return Result{
		Account: next,
		Delta: TradeDelta{
			BalanceChange: totalCost.Neg(),
			Position:      PositionUpdate{Symbol: symbol, Position: pos},
			Record:        rec,
		},
	}, nil
}

// Sell disposes of shares at price, crediting the account. The remaining
// position keeps its average price: realized profit shows up only in the
// balance. Selling the whole position removes the symbol from the
// portfolio rather than leaving a zero-share entry.
func Sell(acct account.Account, symbol string, shares, price decimal.Decimal) (Result, error) {
	if !shares.IsPositive() || !price.IsPositive() {
		return Result{}, fmt.Errorf("sell %s: %w", symbol, ErrInvalidInput)
	}

	held, ok := acct.Portfolio[symbol]
	if !ok || held.Shares.LessThan(shares) {
		return Result{}, fmt.Errorf("sell %s: want %s, hold %s: %w",
			symbol, shares, held.Shares, ErrInsufficientShares)
	}

	totalValue := shares.Mul(price)
	remaining := held.Shares.Sub(shares)

	update := PositionUpdate{Symbol: symbol, Remove: true}
	if remaining.IsPositive() {
		update = PositionUpdate{
			Symbol:   symbol,
			Position: account.Position{Symbol: symbol, Shares: remaining, AvgPrice: held.AvgPrice},
		}
	}

	rec := account.TradeRecord{
		ID:        id.New(),
		Type:      account.Sell,
		Symbol:    symbol,
		Shares:    shares,
		Price:     price,
		Total:     totalValue,
		Timestamp: time.Now().UTC(),
	}

	next := acct.Clone()
	next.Balance = next.Balance.Add(totalValue)
	if update.Remove {
		delete(next.Portfolio, symbol)
	} else {
		next.Portfolio[symbol] = update.Position
	}

	return Result{
		Account: next,
		Delta: TradeDelta{
			BalanceChange: totalValue,
			Position:      update,
			Record:        rec,
		},
	}, nil
}
