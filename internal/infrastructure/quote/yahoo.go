// Package quote fetches delayed equity quotes from the Yahoo finance
// quote API. Single-shot request/response; no state is kept here.
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"folio/internal/domain"
)

const sourceTag = "yahoo-finance"

// Client is a QuoteFetcher against one quote endpoint. The market-region
// suffix is appended to every symbol before lookup.
type Client struct {
	baseURL      string
	marketSuffix string
	http         *http.Client
}

func NewClient(baseURL, marketSuffix string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		marketSuffix: marketSuffix,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

type quoteEnvelope struct {
	QuoteResponse struct {
		Result []upstreamQuote `json:"result"`
		Error  *upstreamError  `json:"error"`
	} `json:"quoteResponse"`
}

type upstreamError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type upstreamQuote struct {
	Symbol                     string   `json:"symbol"`
	Currency                   *string  `json:"currency"`
	RegularMarketPrice         *float64 `json:"regularMarketPrice"`
	PostMarketPrice            *float64 `json:"postMarketPrice"`
	PreMarketPrice             *float64 `json:"preMarketPrice"`
	RegularMarketChange        *float64 `json:"regularMarketChange"`
	RegularMarketChangePercent *float64 `json:"regularMarketChangePercent"`
	RegularMarketTime          int64    `json:"regularMarketTime"`
}

// Fetch resolves one delayed quote. The returned price is the first
// available of regular, post-market, and pre-market price.
func (c *Client) Fetch(ctx context.Context, symbol string) (domain.EquityQuote, error) {
	lookup := symbol + c.marketSuffix
	endpoint := c.baseURL + "/v7/finance/quote?symbols=" + url.QueryEscape(lookup)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.EquityQuote{}, fmt.Errorf("build quote request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.EquityQuote{}, fmt.Errorf("fetch quote for %s: %w", lookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.EquityQuote{}, fmt.Errorf("quote upstream returned %s for %s", resp.Status, lookup)
	}

	var env quoteEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return domain.EquityQuote{}, fmt.Errorf("decode quote response: %w", err)
	}
	if env.QuoteResponse.Error != nil {
		return domain.EquityQuote{}, fmt.Errorf("quote upstream error for %s: %s", lookup, env.QuoteResponse.Error.Description)
	}
	if len(env.QuoteResponse.Result) == 0 {
		return domain.EquityQuote{}, fmt.Errorf("no quote for %s", lookup)
	}

	up := env.QuoteResponse.Result[0]
	q := domain.EquityQuote{
		Symbol:        symbol,
		Currency:      up.Currency,
		Price:         bestPrice(up),
		Change:        up.RegularMarketChange,
		ChangePercent: up.RegularMarketChangePercent,
		Source:        sourceTag,
	}
	if up.Symbol != "" {
		q.Symbol = up.Symbol
	}
	if up.RegularMarketTime > 0 {
		ts := time.Unix(up.RegularMarketTime, 0).UTC().Format(time.RFC3339)
		q.MarketTime = &ts
	}
	return q, nil
}

// bestPrice walks the regular -> post-market -> pre-market waterfall.
func bestPrice(up upstreamQuote) *float64 {
	switch {
	case up.RegularMarketPrice != nil:
		return up.RegularMarketPrice
	case up.PostMarketPrice != nil:
		return up.PostMarketPrice
	default:
		return up.PreMarketPrice
	}
}
