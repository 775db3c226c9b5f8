package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrBlankCoding/StockDashboard/account"
)

func lookupFrom(prices map[string]string) PriceLookup {
	return func(symbol string) (decimal.Decimal, error) {
		p, ok := prices[symbol]
		if !ok {
			return decimal.Zero, errors.New("no quote")
		}
		return dec(p), nil
	}
}

func TestValuate_EmptyPortfolio(t *testing.T) {
	t.Parallel()

	rep := Valuate(newAccount("10000"), lookupFrom(nil))

	assert.Empty(t, rep.Positions)
	assert.True(t, rep.PortfolioValue.IsZero())
	assert.True(t, rep.TotalValue.Equal(dec("10000")))
	assert.True(t, rep.NetProfit.IsZero())
	assert.False(t, rep.Incomplete)
}

func TestValuate_MarksToMarket(t *testing.T) {
	t.Parallel()

	acct := newAccount("10000")
	acct.Balance = dec("7000")
	acct.Portfolio["ABC"] = account.Position{Symbol: "ABC", Shares: dec("20"), AvgPrice: dec("150")}
	acct.Portfolio["XYZ"] = account.Position{Symbol: "XYZ", Shares: dec("5"), AvgPrice: dec("40")}

	rep := Valuate(acct, lookupFrom(map[string]string{"ABC": "180", "XYZ": "30"}))

	require.Len(t, rep.Positions, 2)
	// Sorted by symbol.
	abc, xyz := rep.Positions[0], rep.Positions[1]

	assert.Equal(t, "ABC", abc.Symbol)
	assert.True(t, abc.MarketValue.Equal(dec("3600")))
	assert.True(t, abc.ProfitLoss.Equal(dec("600")))
	assert.True(t, abc.ProfitLossPercent.Equal(dec("20")))

	assert.Equal(t, "XYZ", xyz.Symbol)
	assert.True(t, xyz.ProfitLoss.Equal(dec("-50")))
	assert.True(t, xyz.ProfitLossPercent.Equal(dec("-25")))

	assert.True(t, rep.PortfolioValue.Equal(dec("3750")))
	assert.True(t, rep.TotalValue.Equal(dec("10750")))
	assert.True(t, rep.NetProfit.Equal(dec("750")))
	assert.True(t, rep.NetProfitPercent.Equal(dec("7.5")))
}

func TestValuate_PriceUnavailableIsExplicit(t *testing.T) {
	t.Parallel()

	acct := newAccount("10000")
	acct.Portfolio["ABC"] = account.Position{Symbol: "ABC", Shares: dec("10"), AvgPrice: dec("100")}
	acct.Portfolio["BAD"] = account.Position{Symbol: "BAD", Shares: dec("1"), AvgPrice: dec("50")}

	rep := Valuate(acct, lookupFrom(map[string]string{"ABC": "110"}))

	require.Len(t, rep.Positions, 2, "unpriced positions are reported, not dropped")
	assert.True(t, rep.Incomplete)

	bad := rep.Positions[1]
	assert.Equal(t, "BAD", bad.Symbol)
	assert.True(t, bad.PriceUnavailable)
	assert.True(t, bad.MarketValue.IsZero())

	// Totals cover the priced part only.
	assert.True(t, rep.PortfolioValue.Equal(dec("1100")))
}

func TestValuate_Pure(t *testing.T) {
	t.Parallel()

	acct := newAccount("10000")
	acct.Portfolio["ABC"] = account.Position{Symbol: "ABC", Shares: dec("3"), AvgPrice: dec("10")}
	lookup := lookupFrom(map[string]string{"ABC": "12"})

	first := Valuate(acct, lookup)
	second := Valuate(acct, lookup)

	assert.Equal(t, first, second)
}
