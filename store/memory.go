package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/MrBlankCoding/StockDashboard/account"
	"github.com/MrBlankCoding/StockDashboard/ledger"
)

// MemoryStore keeps everything in maps behind a mutex. Useful for tests and
// ephemeral runs where persistence is not required.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]account.Account
	trades   map[string][]account.TradeRecord
	watches  map[string]map[string]struct{}
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]account.Account),
		trades:   make(map[string][]account.TradeRecord),
		watches:  make(map[string]map[string]struct{}),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) CreateAccount(ctx context.Context, acct account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[acct.ID]; ok {
		return fmt.Errorf("create account %s: %w", acct.ID, ErrExists)
	}
	s.accounts[acct.ID] = acct.Clone()
	return nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return acct.Clone(), nil
}

func (s *MemoryStore) ApplyTrade(ctx context.Context, accountID string, delta ledger.TradeDelta, expectedVersion int64) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[accountID]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	if acct.Version != expectedVersion {
		return account.Account{}, fmt.Errorf("account %s version %d, snapshot %d: %w",
			accountID, acct.Version, expectedVersion, ErrConflict)
	}

	next := acct.Clone()
	next.Balance = next.Balance.Add(delta.BalanceChange)
	if delta.Position.Remove {
		delete(next.Portfolio, delta.Position.Symbol)
	} else {
		next.Portfolio[delta.Position.Symbol] = delta.Position.Position
	}
	next.Version++

	s.accounts[accountID] = next
	s.trades[accountID] = append(s.trades[accountID], delta.Record)
	return next.Clone(), nil
}

func (s *MemoryStore) ListTrades(ctx context.Context, accountID string, limit int) ([]account.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.trades[accountID]
	out := make([]account.TradeRecord, 0, len(history))
	// Newest first.
	for i := len(history) - 1; i >= 0; i-- {
		out = append(out, history[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) AddWatch(ctx context.Context, accountID, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	if s.watches[accountID] == nil {
		s.watches[accountID] = make(map[string]struct{})
	}
	s.watches[accountID][symbol] = struct{}{}
	return nil
}

func (s *MemoryStore) RemoveWatch(ctx context.Context, accountID, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	delete(s.watches[accountID], symbol)
	return nil
}

func (s *MemoryStore) Watchlist(ctx context.Context, accountID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.watches[accountID]))
	for sym := range s.watches[accountID] {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
