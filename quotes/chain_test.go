package quotes

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProvider struct {
	name  string
	quote Quote
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) LastPrice(ctx context.Context, symbol string) (Quote, error) {
	s.calls++
	if s.err != nil {
		return Quote{}, s.err
	}
	return s.quote, nil
}

func TestChain_FirstProviderWins(t *testing.T) {
	t.Parallel()

	first := &stubProvider{name: "a", quote: Quote{Symbol: "ABC", Price: decimal.NewFromInt(42)}}
	second := &stubProvider{name: "b"}

	q, err := NewChain(zap.NewNop(), first, second).LastPrice(context.Background(), "ABC")
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(42)))
	assert.Equal(t, 0, second.calls, "fallback should not be consulted")
}

func TestChain_FallsThroughOnUpstreamError(t *testing.T) {
	t.Parallel()

	broken := &stubProvider{name: "a", err: fmt.Errorf("%w: boom", ErrUpstream)}
	working := &stubProvider{name: "b", quote: Quote{Symbol: "ABC", Price: decimal.NewFromInt(7)}}

	q, err := NewChain(zap.NewNop(), broken, working).LastPrice(context.Background(), "ABC")
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(7)))
}

func TestChain_FallsThroughOnNotFound(t *testing.T) {
	t.Parallel()

	narrow := &stubProvider{name: "a", err: fmt.Errorf("ABC: %w", ErrSymbolNotFound)}
	wide := &stubProvider{name: "b", quote: Quote{Symbol: "ABC", Price: decimal.NewFromInt(9)}}

	q, err := NewChain(zap.NewNop(), narrow, wide).LastPrice(context.Background(), "ABC")
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(9)))
}

func TestChain_AllNotFound(t *testing.T) {
	t.Parallel()

	a := &stubProvider{name: "a", err: fmt.Errorf("x: %w", ErrSymbolNotFound)}
	b := &stubProvider{name: "b", err: fmt.Errorf("x: %w", ErrSymbolNotFound)}

	_, err := NewChain(zap.NewNop(), a, b).LastPrice(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrSymbolNotFound)
}

func TestChain_AllUpstreamErrorsJoined(t *testing.T) {
	t.Parallel()

	a := &stubProvider{name: "a", err: fmt.Errorf("%w: a down", ErrUpstream)}
	b := &stubProvider{name: "b", err: fmt.Errorf("%w: b down", ErrUpstream)}

	_, err := NewChain(zap.NewNop(), a, b).LastPrice(context.Background(), "ABC")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "a down")
	assert.Contains(t, err.Error(), "b down")
}

func TestChain_MixedNotFoundAndUpstreamIsUpstream(t *testing.T) {
	t.Parallel()

	a := &stubProvider{name: "a", err: fmt.Errorf("x: %w", ErrSymbolNotFound)}
	b := &stubProvider{name: "b", err: fmt.Errorf("%w: b down", ErrUpstream)}

	// With one provider unreachable we cannot claim the symbol is unknown.
	_, err := NewChain(zap.NewNop(), a, b).LastPrice(context.Background(), "ABC")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSymbolNotFound)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestChain_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	a := &stubProvider{name: "a", err: errors.New("context canceled")}
	b := &stubProvider{name: "b", quote: Quote{Symbol: "ABC"}}
	cancel()

	_, err := NewChain(zap.NewNop(), a, b).LastPrice(ctx, "ABC")
	require.Error(t, err)
	assert.Equal(t, 0, b.calls)
}

func TestCachedProvider_ServesFromCache(t *testing.T) {
	t.Parallel()

	upstream := &stubProvider{name: "a", quote: Quote{Symbol: "ABC", Price: decimal.NewFromInt(5)}}
	cached, err := NewCachedProvider(upstream, time.Minute)
	require.NoError(t, err)
	defer cached.Close()

	q1, err := cached.LastPrice(context.Background(), "ABC")
	require.NoError(t, err)

	// Ristretto admits asynchronously; give the set a moment to land.
	time.Sleep(20 * time.Millisecond)

	q2, err := cached.LastPrice(context.Background(), "ABC")
	require.NoError(t, err)

	assert.True(t, q1.Price.Equal(q2.Price))
	assert.LessOrEqual(t, upstream.calls, 2)
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	t.Parallel()

	upstream := &stubProvider{name: "a", err: fmt.Errorf("%w: down", ErrUpstream)}
	cached, err := NewCachedProvider(upstream, time.Minute)
	require.NoError(t, err)
	defer cached.Close()

	_, err = cached.LastPrice(context.Background(), "ABC")
	assert.ErrorIs(t, err, ErrUpstream)

	_, err = cached.LastPrice(context.Background(), "ABC")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, 2, upstream.calls, "failures must hit the upstream every time")
}
