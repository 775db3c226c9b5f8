package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultAlphaVantageURL is the production Alpha Vantage endpoint.
const DefaultAlphaVantageURL = "https://www.alphavantage.co/query"

// AlphaVantage is a client for the Alpha Vantage REST API. Beyond last
// prices it serves the dashboard extras: daily history, symbol search, and
// company overviews.
type AlphaVantage struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAlphaVantage creates a client against the production endpoint.
func NewAlphaVantage(apiKey string) *AlphaVantage {
	return &AlphaVantage{
		baseURL: DefaultAlphaVantageURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NewAlphaVantageURL creates a client against a custom endpoint. Used by
// tests to point at an httptest server.
func NewAlphaVantageURL(apiKey, baseURL string) *AlphaVantage {
	c := NewAlphaVantage(apiKey)
	c.baseURL = baseURL
	return c
}

func (c *AlphaVantage) Name() string { return "alphavantage" }

var _ Provider = (*AlphaVantage)(nil)

// query performs one GET with the given function/params and decodes the
// body into dst. Alpha Vantage signals throttling and bad keys inside a 200
// response, so callers must also inspect the decoded payload.
func (c *AlphaVantage) query(ctx context.Context, fn string, params url.Values, dst any) error {
	params.Set("function", fn)
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: alphavantage %s: %v", ErrUpstream, fn, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: alphavantage %s: status %d: %s", ErrUpstream, fn, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: alphavantage %s: decode: %v", ErrUpstream, fn, err)
	}
	return nil
}

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Open          string `json:"02. open"`
		High          string `json:"03. high"`
		Low           string `json:"04. low"`
		Price         string `json:"05. price"`
		PrevClose     string `json:"08. previous close"`
		Change        string `json:"09. change"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
	Note string `json:"Note"`
}

// LastPrice fetches the GLOBAL_QUOTE for symbol. An empty quote object in
// the response means the symbol is unknown; a Note means the API key is
// being throttled.
func (c *AlphaVantage) LastPrice(ctx context.Context, symbol string) (Quote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp globalQuoteResponse
	if err := c.query(ctx, "GLOBAL_QUOTE", params, &resp); err != nil {
		return Quote{}, err
	}
	if resp.Note != "" {
		return Quote{}, fmt.Errorf("%w: alphavantage: %s", ErrUpstream, resp.Note)
	}
	if resp.GlobalQuote.Price == "" {
		return Quote{}, fmt.Errorf("alphavantage %s: %w", symbol, ErrSymbolNotFound)
	}

	q := Quote{Symbol: symbol, Timestamp: time.Now().UTC()}
	fields := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{resp.GlobalQuote.Price, &q.Price},
		{resp.GlobalQuote.Open, &q.Open},
		{resp.GlobalQuote.High, &q.High},
		{resp.GlobalQuote.Low, &q.Low},
		{resp.GlobalQuote.PrevClose, &q.PrevClose},
		{resp.GlobalQuote.Change, &q.Change},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return Quote{}, fmt.Errorf("%w: alphavantage: parse %q: %v", ErrUpstream, f.raw, err)
		}
		*f.dst = d
	}
	if pct := resp.GlobalQuote.ChangePercent; pct != "" {
		d, err := decimal.NewFromString(trimPercent(pct))
		if err != nil {
			return Quote{}, fmt.Errorf("%w: alphavantage: parse %q: %v", ErrUpstream, pct, err)
		}
		q.ChangePercent = d
	}
	return q, nil
}

func trimPercent(s string) string {
	if len(s) > 0 && s[len(s)-1] == '%' {
		return s[:len(s)-1]
	}
	return s
}

type dailySeriesResponse struct {
	Series map[string]struct {
		Close string `json:"4. close"`
	} `json:"Time Series (Daily)"`
	Note string `json:"Note"`
}

// DailyHistory returns up to `days` most recent daily closes, newest first.
func (c *AlphaVantage) DailyHistory(ctx context.Context, symbol string, days int) ([]DailyClose, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("outputsize", "compact")

	var resp dailySeriesResponse
	if err := c.query(ctx, "TIME_SERIES_DAILY", params, &resp); err != nil {
		return nil, err
	}
	if resp.Note != "" {
		return nil, fmt.Errorf("%w: alphavantage: %s", ErrUpstream, resp.Note)
	}
	if len(resp.Series) == 0 {
		return nil, fmt.Errorf("alphavantage %s history: %w", symbol, ErrSymbolNotFound)
	}

	dates := make([]string, 0, len(resp.Series))
	for d := range resp.Series {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > days {
		dates = dates[:days]
	}

	out := make([]DailyClose, 0, len(dates))
	for _, d := range dates {
		price, err := decimal.NewFromString(resp.Series[d].Close)
		if err != nil {
			return nil, fmt.Errorf("%w: alphavantage: parse close %q: %v", ErrUpstream, resp.Series[d].Close, err)
		}
		out = append(out, DailyClose{Date: d, Price: price})
	}
	return out, nil
}

type searchResponse struct {
	BestMatches []struct {
		Symbol string `json:"1. symbol"`
		Name   string `json:"2. name"`
	} `json:"bestMatches"`
}

// Search runs a SYMBOL_SEARCH and returns the top matches (at most five).
func (c *AlphaVantage) Search(ctx context.Context, keywords string) ([]SearchMatch, error) {
	params := url.Values{}
	params.Set("keywords", keywords)

	var resp searchResponse
	if err := c.query(ctx, "SYMBOL_SEARCH", params, &resp); err != nil {
		return nil, err
	}

	matches := resp.BestMatches
	if len(matches) > 5 {
		matches = matches[:5]
	}
	out := make([]SearchMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, SearchMatch{Symbol: m.Symbol, Description: m.Name})
	}
	return out, nil
}

type overviewResponse struct {
	Symbol   string `json:"Symbol"`
	Name     string `json:"Name"`
	Exchange string `json:"Exchange"`
	Industry string `json:"Industry"`
}

// Overview fetches company fundamentals. Unknown symbols come back as an
// empty object, which is reported as not found.
func (c *AlphaVantage) Overview(ctx context.Context, symbol string) (CompanyOverview, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp overviewResponse
	if err := c.query(ctx, "OVERVIEW", params, &resp); err != nil {
		return CompanyOverview{}, err
	}
	if resp.Symbol == "" {
		return CompanyOverview{}, fmt.Errorf("alphavantage %s overview: %w", symbol, ErrSymbolNotFound)
	}
	return CompanyOverview{
		Symbol:   resp.Symbol,
		Name:     resp.Name,
		Exchange: resp.Exchange,
		Industry: resp.Industry,
	}, nil
}
