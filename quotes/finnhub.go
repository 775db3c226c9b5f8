package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultFinnhubURL is the production Finnhub endpoint.
const DefaultFinnhubURL = "https://finnhub.io/api/v1"

// Finnhub is a minimal client for the Finnhub quote API. It only serves
// last prices; it sits in front of Alpha Vantage in the default fallback
// order because its rate limits are friendlier.
type Finnhub struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewFinnhub(token string) *Finnhub {
	return &Finnhub{
		baseURL: DefaultFinnhubURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NewFinnhubURL creates a client against a custom endpoint, for tests.
func NewFinnhubURL(token, baseURL string) *Finnhub {
	c := NewFinnhub(token)
	c.baseURL = baseURL
	return c
}

func (c *Finnhub) Name() string { return "finnhub" }

var _ Provider = (*Finnhub)(nil)

type finnhubQuote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PrevClose     float64 `json:"pc"`
}

// LastPrice fetches /quote for symbol. Finnhub answers unknown symbols with
// an all-zero quote, which is reported as not found.
func (c *Finnhub) LastPrice(ctx context.Context, symbol string) (Quote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/quote?"+params.Encode(), nil)
	if err != nil {
		return Quote{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: finnhub: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Quote{}, fmt.Errorf("%w: finnhub: status %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}

	var fq finnhubQuote
	if err := json.NewDecoder(resp.Body).Decode(&fq); err != nil {
		return Quote{}, fmt.Errorf("%w: finnhub: decode: %v", ErrUpstream, err)
	}

	if fq.Current == 0 && fq.PrevClose == 0 {
		return Quote{}, fmt.Errorf("finnhub %s: %w", symbol, ErrSymbolNotFound)
	}

	return Quote{
		Symbol:        symbol,
		Price:         decimal.NewFromFloat(fq.Current),
		Change:        decimal.NewFromFloat(fq.Change),
		ChangePercent: decimal.NewFromFloat(fq.ChangePercent),
		High:          decimal.NewFromFloat(fq.High),
		Low:           decimal.NewFromFloat(fq.Low),
		Open:          decimal.NewFromFloat(fq.Open),
		PrevClose:     decimal.NewFromFloat(fq.PrevClose),
		Timestamp:     time.Now().UTC(),
	}, nil
}
