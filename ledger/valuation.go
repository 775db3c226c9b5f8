package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/MrBlankCoding/StockDashboard/account"
)

var hundred = decimal.NewFromInt(100)

// PriceLookup resolves the current price for a symbol. Any error means the
// price is unavailable; the valuation does not retry or distinguish causes.
type PriceLookup func(symbol string) (decimal.Decimal, error)

// PositionReport is one portfolio line with market value and unrealized P/L.
// When the price lookup fails the line is still reported, flagged
// PriceUnavailable, so the portfolio is never silently understated.
type PositionReport struct {
	Symbol            string          `json:"symbol"`
	Shares            decimal.Decimal `json:"shares"`
	AvgPrice          decimal.Decimal `json:"avg_price"`
	Price             decimal.Decimal `json:"price"`
	MarketValue       decimal.Decimal `json:"market_value"`
	ProfitLoss        decimal.Decimal `json:"profit_loss"`
	ProfitLossPercent decimal.Decimal `json:"profit_loss_percent"`
	PriceUnavailable  bool            `json:"price_unavailable,omitempty"`
}

// Report is the read-only projection of an account: cash plus marked-to-
// market positions. Incomplete is set when any position could not be
// priced, in which case the totals cover only the priced part.
type Report struct {
	AccountID        string           `json:"account_id"`
	Balance          decimal.Decimal  `json:"balance"`
	Positions        []PositionReport `json:"positions"`
	PortfolioValue   decimal.Decimal  `json:"portfolio_value"`
	TotalValue       decimal.Decimal  `json:"total_value"`
	NetProfit        decimal.Decimal  `json:"net_profit"`
	NetProfitPercent decimal.Decimal  `json:"net_profit_percent"`
	Incomplete       bool             `json:"incomplete,omitempty"`
}

// Valuate marks the account to market. It is a pure function of the
// snapshot and the lookup: same inputs, same report.
func Valuate(acct account.Account, lookup PriceLookup) Report {
	rep := Report{
		AccountID:      acct.ID,
		Balance:        acct.Balance,
		Positions:      make([]PositionReport, 0, len(acct.Portfolio)),
		PortfolioValue: decimal.Zero,
	}

	symbols := make([]string, 0, len(acct.Portfolio))
	for sym := range acct.Portfolio {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		pos := acct.Portfolio[sym]
		line := PositionReport{
			Symbol:   sym,
			Shares:   pos.Shares,
			AvgPrice: pos.AvgPrice,
		}

		price, err := lookup(sym)
		if err != nil {
			line.PriceUnavailable = true
			rep.Incomplete = true
			rep.Positions = append(rep.Positions, line)
			continue
		}

		line.Price = price
		line.MarketValue = pos.Shares.Mul(price)
		line.ProfitLoss = line.MarketValue.Sub(pos.CostBasis())
		line.ProfitLossPercent = price.Sub(pos.AvgPrice).Div(pos.AvgPrice).Mul(hundred)

		rep.PortfolioValue = rep.PortfolioValue.Add(line.MarketValue)
		rep.Positions = append(rep.Positions, line)
	}

	rep.TotalValue = acct.Balance.Add(rep.PortfolioValue)
	rep.NetProfit = rep.TotalValue.Sub(acct.OpeningBalance)
	if acct.OpeningBalance.IsPositive() {
		rep.NetProfitPercent = rep.NetProfit.Div(acct.OpeningBalance).Mul(hundred)
	}
	return rep
}
