// Package events publishes executed-trade notifications for downstream
// consumers (analytics, notifications). Publishing is best-effort: a trade
// that already hit the store is never rolled back because the event bus is
// down.
package events

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/MrBlankCoding/StockDashboard/account"
)

// TradeExecuted is the payload emitted after every applied trade.
type TradeExecuted struct {
	AccountID  string              `json:"account_id"`
	Record     account.TradeRecord `json:"record"`
	NewBalance decimal.Decimal     `json:"new_balance"`
}

type Publisher interface {
	Publish(ctx context.Context, ev TradeExecuted) error
	Close() error
}

// NoopPublisher drops events. The default when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, ev TradeExecuted) error { return nil }
func (NoopPublisher) Close() error                                        { return nil }
