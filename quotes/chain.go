package quotes

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Chain tries providers in order until one answers. A definitive
// ErrSymbolNotFound still consults the next provider (symbol coverage
// differs between upstreams); only when every provider says not-found does
// the chain report not-found. Upstream failures are collected and, if no
// provider produced a quote, returned joined so the caller sees every cause.
type Chain struct {
	providers []Provider
	logger    *zap.Logger
}

// NewChain builds a fallback chain over the given providers, first wins.
func NewChain(logger *zap.Logger, providers ...Provider) *Chain {
	return &Chain{providers: providers, logger: logger}
}

func (c *Chain) Name() string { return "chain" }

var _ Provider = (*Chain)(nil)

func (c *Chain) LastPrice(ctx context.Context, symbol string) (Quote, error) {
	if len(c.providers) == 0 {
		return Quote{}, fmt.Errorf("%w: no providers configured", ErrUpstream)
	}

	var upstreamErrs []error
	notFound := 0

	for _, p := range c.providers {
		q, err := p.LastPrice(ctx, symbol)
		if err == nil {
			return q, nil
		}

		switch {
		case errors.Is(err, ErrSymbolNotFound):
			notFound++
		case ctx.Err() != nil:
			// Cancelled or timed out; stop walking the chain.
			return Quote{}, err
		default:
			c.logger.Warn("quote provider failed",
				zap.String("provider", p.Name()),
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			upstreamErrs = append(upstreamErrs, err)
		}
	}

	if len(upstreamErrs) == 0 && notFound == len(c.providers) {
		return Quote{}, fmt.Errorf("%s: %w", symbol, ErrSymbolNotFound)
	}
	return Quote{}, errors.Join(upstreamErrs...)
}
