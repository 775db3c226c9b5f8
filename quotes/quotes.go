// Package quotes fetches market data from upstream providers.
//
// Providers return typed outcomes so callers can tell "this symbol does not
// exist" from "the upstream is down": ErrSymbolNotFound means the provider
// answered and knows nothing, any error matching ErrUpstream means the
// provider could not answer. The Chain type strings providers together in a
// fixed fallback order.
package quotes

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrSymbolNotFound is a definitive "no such symbol" from a provider.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrUpstream marks transient provider failures (network, rate limits,
	// malformed payloads). Wrapped errors carry the detail.
	ErrUpstream = errors.New("upstream provider error")
)

// Quote is a point-in-time price for one symbol. Only Symbol, Price, and
// Timestamp are guaranteed; the day-range fields depend on the provider.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"percent_change"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Open          decimal.Decimal `json:"open"`
	PrevClose     decimal.Decimal `json:"prev_close"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Provider answers last-price queries for one upstream.
type Provider interface {
	Name() string
	LastPrice(ctx context.Context, symbol string) (Quote, error)
}

// DailyClose is one day of closing-price history.
type DailyClose struct {
	Date  string          `json:"date"` // YYYY-MM-DD
	Price decimal.Decimal `json:"price"`
}

// SearchMatch is one symbol-search result.
type SearchMatch struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
}

// CompanyOverview is the descriptive slice of company fundamentals the
// dashboard shows next to a quote.
type CompanyOverview struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"company_name"`
	Exchange string `json:"exchange"`
	Industry string `json:"industry"`
}
