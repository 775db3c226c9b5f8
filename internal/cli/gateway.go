package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/MrBlankCoding/StockDashboard/config"
	"github.com/MrBlankCoding/StockDashboard/quotes"
)

// buildGateway assembles the provider fallback chain from config. Providers
// without credentials are skipped; at least one must remain. The returned
// cleanup releases the quote cache.
func buildGateway(cfg *config.Config, logger *zap.Logger) (*quotes.Gateway, func(), error) {
	var (
		providers []quotes.Provider
		av        *quotes.AlphaVantage
	)

	for _, name := range cfg.Quotes.Providers {
		switch name {
		case "finnhub":
			if cfg.Quotes.FinnhubToken == "" {
				logger.Warn("finnhub enabled but no token configured, skipping")
				continue
			}
			providers = append(providers, quotes.NewFinnhub(cfg.Quotes.FinnhubToken))
		case "alphavantage":
			if cfg.Quotes.AlphaVantageKey == "" {
				logger.Warn("alphavantage enabled but no key configured, skipping")
				continue
			}
			av = quotes.NewAlphaVantage(cfg.Quotes.AlphaVantageKey)
			providers = append(providers, av)
		}
	}

	if len(providers) == 0 {
		return nil, nil, fmt.Errorf("no quote provider has credentials; set FINNHUB_TOKEN or ALPHAVANTAGE_API_KEY")
	}

	var pricer quotes.Provider = quotes.NewChain(logger, providers...)
	cleanup := func() {}

	if cfg.Quotes.CacheTTL > 0 {
		cached, err := quotes.NewCachedProvider(pricer, cfg.Quotes.CacheTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("build quote cache: %w", err)
		}
		pricer = cached
		cleanup = cached.Close
	}

	return quotes.NewGateway(pricer, av), cleanup, nil
}
