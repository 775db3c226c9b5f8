package quotes

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
)

// CachedProvider decorates a Provider with a TTL cache. Paper trading does
// not need tick-level freshness, and the free upstream tiers have tight
// request budgets, so trades within the TTL reuse the same quote.
//
// Only successful quotes are cached; not-found and upstream errors always
// go back to the wrapped provider.
type CachedProvider struct {
	next  Provider
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewCachedProvider(next Provider, ttl time.Duration) (*CachedProvider, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedProvider{next: next, cache: cache, ttl: ttl}, nil
}

func (c *CachedProvider) Name() string { return c.next.Name() + "-cached" }

var _ Provider = (*CachedProvider)(nil)

func (c *CachedProvider) LastPrice(ctx context.Context, symbol string) (Quote, error) {
	if v, ok := c.cache.Get(symbol); ok {
		if q, ok := v.(Quote); ok {
			return q, nil
		}
	}

	q, err := c.next.LastPrice(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}

	c.cache.SetWithTTL(symbol, q, 1, c.ttl)
	return q, nil
}

// Close releases the cache's internal goroutines.
func (c *CachedProvider) Close() {
	c.cache.Close()
}
