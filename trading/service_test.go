package trading

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MrBlankCoding/StockDashboard/account"
	"github.com/MrBlankCoding/StockDashboard/events"
	"github.com/MrBlankCoding/StockDashboard/ledger"
	"github.com/MrBlankCoding/StockDashboard/quotes"
	"github.com/MrBlankCoding/StockDashboard/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixedQuotes struct {
	prices map[string]string
}

func (f *fixedQuotes) Name() string { return "fixed" }

func (f *fixedQuotes) LastPrice(ctx context.Context, symbol string) (quotes.Quote, error) {
	p, ok := f.prices[symbol]
	if !ok {
		return quotes.Quote{}, fmt.Errorf("%s: %w", symbol, quotes.ErrSymbolNotFound)
	}
	return quotes.Quote{Symbol: symbol, Price: dec(p)}, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.TradeExecuted
}

func (c *capturePublisher) Publish(ctx context.Context, ev events.TradeExecuted) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func newTestService(prices map[string]string) (*Service, *capturePublisher) {
	pub := &capturePublisher{}
	svc := NewService(
		store.NewMemory(),
		&fixedQuotes{prices: prices},
		pub,
		zap.NewNop(),
		dec("10000.00"),
	)
	return svc, pub
}

func TestService_RegisterOpensFreshAccount(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(nil)
	acct, err := svc.Register(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, acct.ID)
	assert.True(t, acct.Balance.Equal(dec("10000.00")))
	assert.Empty(t, acct.Portfolio)

	history, err := svc.History(context.Background(), acct.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestService_BuyAtMarket(t *testing.T) {
	t.Parallel()

	svc, pub := newTestService(map[string]string{"AAPL": "200"})
	acct, err := svc.Register(context.Background())
	require.NoError(t, err)

	got, rec, err := svc.Buy(context.Background(), acct.ID, "AAPL", dec("10"), decimal.Zero, "long term")
	require.NoError(t, err)

	assert.True(t, got.Balance.Equal(dec("8000")), "market price resolved from the gateway")
	assert.True(t, rec.Price.Equal(dec("200")))
	assert.Equal(t, "long term", rec.Reason)

	require.Len(t, pub.events, 1)
	assert.Equal(t, acct.ID, pub.events[0].AccountID)
	assert.True(t, pub.events[0].NewBalance.Equal(dec("8000")))
}

func TestService_BuyAtLimitPriceSkipsGateway(t *testing.T) {
	t.Parallel()

	// No prices configured: the gateway would fail if consulted.
	svc, _ := newTestService(nil)
	acct, err := svc.Register(context.Background())
	require.NoError(t, err)

	got, _, err := svc.Buy(context.Background(), acct.ID, "AAPL", dec("5"), dec("100"), "")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("9500")))
}

func TestService_NegativePriceIsRejected(t *testing.T) {
	t.Parallel()

	// A gateway price exists, but a negative limit price must never be
	// silently upgraded to an at-market order.
	svc, pub := newTestService(map[string]string{"AAPL": "100"})
	acct, err := svc.Register(context.Background())
	require.NoError(t, err)

	_, _, err = svc.Buy(context.Background(), acct.ID, "AAPL", dec("1"), dec("-5"), "")
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, _, err = svc.Sell(context.Background(), acct.ID, "AAPL", dec("1"), dec("-5"))
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	got, err := svc.Account(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("10000.00")), "no money moved")
	assert.Empty(t, pub.events)
}

func TestService_BuyUnknownSymbol(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(map[string]string{})
	acct, err := svc.Register(context.Background())
	require.NoError(t, err)

	_, _, err = svc.Buy(context.Background(), acct.ID, "NOPE", dec("1"), decimal.Zero, "")
	assert.ErrorIs(t, err, quotes.ErrSymbolNotFound)
}

func TestService_LedgerErrorsPropagate(t *testing.T) {
	t.Parallel()

	svc, pub := newTestService(map[string]string{"AAPL": "200"})
	acct, err := svc.Register(context.Background())
	require.NoError(t, err)

	_, _, err = svc.Buy(context.Background(), acct.ID, "AAPL", dec("1000"), decimal.Zero, "")
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	_, _, err = svc.Sell(context.Background(), acct.ID, "AAPL", dec("1"), decimal.Zero)
	assert.ErrorIs(t, err, ledger.ErrInsufficientShares)

	assert.Empty(t, pub.events, "rejected trades publish nothing")
}

func TestService_SellRoundTrip(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(map[string]string{"AAPL": "200"})
	acct, err := svc.Register(context.Background())
	require.NoError(t, err)

	_, _, err = svc.Buy(context.Background(), acct.ID, "AAPL", dec("10"), dec("100"), "")
	require.NoError(t, err)

	got, rec, err := svc.Sell(context.Background(), acct.ID, "AAPL", dec("10"), decimal.Zero)
	require.NoError(t, err)

	assert.True(t, got.Balance.Equal(dec("11000")), "sold at the gateway price of 200")
	assert.Equal(t, account.Sell, rec.Type)
	assert.Empty(t, got.Portfolio)

	history, err := svc.History(context.Background(), acct.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, account.Sell, history[0].Type, "newest first")
	assert.Equal(t, account.Buy, history[1].Type)
}

func TestService_ConcurrentBuysNeverLoseUpdates(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(map[string]string{"AAPL": "100"})
	acct, err := svc.Register(context.Background())
	require.NoError(t, err)

	// Two goroutines race; the version check plus retry means both must
	// land (the account can afford both).
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Buy(context.Background(), acct.ID, "AAPL", dec("1"), decimal.Zero, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.Account(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("9800")), "both buys applied, got %s", got.Balance)
	assert.True(t, got.Portfolio["AAPL"].Shares.Equal(dec("2")))
}

func TestService_ValuationFlagsUnpricedPositions(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(map[string]string{"AAPL": "150"})
	acct, err := svc.Register(context.Background())
	require.NoError(t, err)

	_, _, err = svc.Buy(context.Background(), acct.ID, "AAPL", dec("10"), dec("100"), "")
	require.NoError(t, err)
	_, _, err = svc.Buy(context.Background(), acct.ID, "GONE", dec("2"), dec("50"), "")
	require.NoError(t, err)

	rep, err := svc.Valuation(context.Background(), acct.ID)
	require.NoError(t, err)

	require.Len(t, rep.Positions, 2)
	assert.True(t, rep.Incomplete)
	assert.True(t, rep.Positions[0].MarketValue.Equal(dec("1500")))
	assert.True(t, rep.Positions[1].PriceUnavailable)
}

func TestService_Watchlist(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(map[string]string{"AAPL": "150"})
	acct, err := svc.Register(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.AddWatch(context.Background(), acct.ID, "AAPL"))
	require.NoError(t, svc.AddWatch(context.Background(), acct.ID, "GONE"))

	items, err := svc.Watchlist(context.Background(), acct.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "AAPL", items[0].Symbol)
	require.NotNil(t, items[0].Quote)
	assert.True(t, items[0].Quote.Price.Equal(dec("150")))

	assert.Equal(t, "GONE", items[1].Symbol)
	assert.True(t, items[1].PriceUnavailable)
}
