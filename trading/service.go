// Package trading glues the collaborators together: quote gateway in,
// pure ledger in the middle, account store out. All consistency handling
// (conflict retry with a fresh snapshot) lives here, not in the ledger.
package trading

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MrBlankCoding/StockDashboard/account"
	"github.com/MrBlankCoding/StockDashboard/events"
	"github.com/MrBlankCoding/StockDashboard/ledger"
	"github.com/MrBlankCoding/StockDashboard/quotes"
	"github.com/MrBlankCoding/StockDashboard/store"
)

// conflictRetries is how many times a trade is recomputed against a fresh
// snapshot after the store reports a concurrent write.
const conflictRetries = 2

type Service struct {
	store          store.Store
	quotes         quotes.Provider
	events         events.Publisher
	logger         *zap.Logger
	openingBalance decimal.Decimal
}

func NewService(s store.Store, q quotes.Provider, ev events.Publisher, logger *zap.Logger, openingBalance decimal.Decimal) *Service {
	return &Service{
		store:          s,
		quotes:         q,
		events:         ev,
		logger:         logger,
		openingBalance: openingBalance,
	}
}

// Register opens a new account with the configured starting cash.
func (s *Service) Register(ctx context.Context) (account.Account, error) {
	acct := account.New(uuid.NewString(), s.openingBalance)
	if err := s.store.CreateAccount(ctx, acct); err != nil {
		return account.Account{}, err
	}
	s.logger.Info("account registered",
		zap.String("account_id", acct.ID),
		zap.String("opening_balance", acct.OpeningBalance.String()),
	)
	return acct, nil
}

func (s *Service) Account(ctx context.Context, accountID string) (account.Account, error) {
	return s.store.GetAccount(ctx, accountID)
}

// Buy executes a buy for the account. A zero price means "at market": the
// gateway resolves the current price first. The returned account is the
// post-trade snapshot.
func (s *Service) Buy(ctx context.Context, accountID, symbol string, shares, price decimal.Decimal, reason string) (account.Account, account.TradeRecord, error) {
	price, err := s.resolvePrice(ctx, symbol, price)
	if err != nil {
		return account.Account{}, account.TradeRecord{}, err
	}
	return s.execute(ctx, accountID, func(snapshot account.Account) (ledger.Result, error) {
		return ledger.Buy(snapshot, symbol, shares, price, reason)
	})
}

// Sell executes a sell; price semantics match Buy.
func (s *Service) Sell(ctx context.Context, accountID, symbol string, shares, price decimal.Decimal) (account.Account, account.TradeRecord, error) {
	price, err := s.resolvePrice(ctx, symbol, price)
	if err != nil {
		return account.Account{}, account.TradeRecord{}, err
	}
	return s.execute(ctx, accountID, func(snapshot account.Account) (ledger.Result, error) {
		return ledger.Sell(snapshot, symbol, shares, price)
	})
}

func (s *Service) resolvePrice(ctx context.Context, symbol string, price decimal.Decimal) (decimal.Decimal, error) {
	if price.IsPositive() {
		return price, nil
	}
	// Only a zero price means "at market". A negative price is a caller
	// mistake the ledger would never see otherwise, since the gateway price
	// would replace it before validation.
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("price %s: %w", price, ledger.ErrInvalidInput)
	}
	q, err := s.quotes.LastPrice(ctx, symbol)
	if err != nil {
		if errors.Is(err, quotes.ErrSymbolNotFound) {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("%w: %v", ledger.ErrPriceUnavailable, err)
	}
	return q.Price, nil
}

// execute runs the load/compute/apply loop. Ledger rejections are terminal;
// only store conflicts are retried, each time against a fresh snapshot.
func (s *Service) execute(ctx context.Context, accountID string, trade func(account.Account) (ledger.Result, error)) (account.Account, account.TradeRecord, error) {
	var lastErr error
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		snapshot, err := s.store.GetAccount(ctx, accountID)
		if err != nil {
			return account.Account{}, account.TradeRecord{}, err
		}

		res, err := trade(snapshot)
		if err != nil {
			return account.Account{}, account.TradeRecord{}, err
		}

		applied, err := s.store.ApplyTrade(ctx, accountID, res.Delta, snapshot.Version)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				lastErr = err
				s.logger.Debug("trade conflicted, retrying",
					zap.String("account_id", accountID),
					zap.Int("attempt", attempt+1),
				)
				continue
			}
			return account.Account{}, account.TradeRecord{}, err
		}

		rec := res.Delta.Record
		s.logger.Info("trade executed",
			zap.String("account_id", accountID),
			zap.String("trade_id", rec.ID),
			zap.String("type", string(rec.Type)),
			zap.String("symbol", rec.Symbol),
			zap.String("shares", rec.Shares.String()),
			zap.String("price", rec.Price.String()),
		)

		if err := s.events.Publish(ctx, events.TradeExecuted{
			AccountID:  accountID,
			Record:     rec,
			NewBalance: applied.Balance,
		}); err != nil {
			// Best-effort: the trade is already durable.
			s.logger.Warn("publish trade event failed", zap.Error(err))
		}

		return applied, rec, nil
	}
	return account.Account{}, account.TradeRecord{}, lastErr
}

// Valuation marks the account to market via the quote gateway. Gateway
// failures per symbol become "price unavailable" lines, never omissions.
func (s *Service) Valuation(ctx context.Context, accountID string) (ledger.Report, error) {
	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return ledger.Report{}, err
	}

	lookup := func(symbol string) (decimal.Decimal, error) {
		q, err := s.quotes.LastPrice(ctx, symbol)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", ledger.ErrPriceUnavailable, err)
		}
		return q.Price, nil
	}
	return ledger.Valuate(acct, lookup), nil
}

// History returns the account's trade history, newest first.
func (s *Service) History(ctx context.Context, accountID string, limit int) ([]account.TradeRecord, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.ListTrades(ctx, accountID, limit)
}

// WatchItem is a watched symbol with its current quote, if available.
type WatchItem struct {
	Symbol           string        `json:"symbol"`
	Quote            *quotes.Quote `json:"quote,omitempty"`
	PriceUnavailable bool          `json:"price_unavailable,omitempty"`
}

func (s *Service) AddWatch(ctx context.Context, accountID, symbol string) error {
	return s.store.AddWatch(ctx, accountID, symbol)
}

func (s *Service) RemoveWatch(ctx context.Context, accountID, symbol string) error {
	return s.store.RemoveWatch(ctx, accountID, symbol)
}

// Watchlist returns the account's watched symbols with live quotes. A
// symbol whose quote fails is flagged, mirroring the valuation rule.
func (s *Service) Watchlist(ctx context.Context, accountID string) ([]WatchItem, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	symbols, err := s.store.Watchlist(ctx, accountID)
	if err != nil {
		return nil, err
	}

	out := make([]WatchItem, 0, len(symbols))
	for _, sym := range symbols {
		item := WatchItem{Symbol: sym}
		q, err := s.quotes.LastPrice(ctx, sym)
		if err != nil {
			item.PriceUnavailable = true
		} else {
			item.Quote = &q
		}
		out = append(out, item)
	}
	return out, nil
}
