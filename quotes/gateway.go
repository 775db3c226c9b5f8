package quotes

import (
	"context"
	"fmt"
)

// Gateway bundles the price fallback chain with the Alpha Vantage extras
// (history, search, overviews) the dashboard needs. Prices go through the
// embedded Provider; the extras only exist on Alpha Vantage, so they fail
// as upstream errors when no key is configured.
type Gateway struct {
	Provider
	av *AlphaVantage
}

// NewGateway wraps the price provider; av may be nil when Alpha Vantage is
// not configured.
func NewGateway(p Provider, av *AlphaVantage) *Gateway {
	return &Gateway{Provider: p, av: av}
}

func (g *Gateway) DailyHistory(ctx context.Context, symbol string, days int) ([]DailyClose, error) {
	if g.av == nil {
		return nil, fmt.Errorf("%w: alphavantage not configured", ErrUpstream)
	}
	return g.av.DailyHistory(ctx, symbol, days)
}

func (g *Gateway) Search(ctx context.Context, keywords string) ([]SearchMatch, error) {
	if g.av == nil {
		return nil, fmt.Errorf("%w: alphavantage not configured", ErrUpstream)
	}
	return g.av.Search(ctx, keywords)
}

func (g *Gateway) Overview(ctx context.Context, symbol string) (CompanyOverview, error) {
	if g.av == nil {
		return CompanyOverview{}, fmt.Errorf("%w: alphavantage not configured", ErrUpstream)
	}
	return g.av.Overview(ctx, symbol)
}
