// Package alphavantage implements the Alpha Vantage data-only provider. It
// exposes the raw query surface; canonical normalization lives in the adapter
// layer.
package alphavantage

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"time"

	"tradeflow/logger"
	"tradeflow/provider"
	"tradeflow/transport"
)

const baseURL = "https://www.alphavantage.co"

// Options configures a Client. Alpha Vantage has a single API key with no
// paper/live distinction.
type Options struct {
	Credentials provider.Credentials
	Timeout     time.Duration
	HTTPClient  *http.Client
	Clock       transport.Clock
	// RequestsPerSecond throttles locally; the free tier allows very few
	// calls per minute.
	RequestsPerSecond float64
}

// Client is an Alpha Vantage session.
type Client struct {
	desc   provider.Descriptor
	apiKey string
	svc    *transport.Service
	log    *logger.Entry
}

var _ provider.Client = (*Client)(nil)

// New builds a client. A missing API key is a construction-time error since
// every endpoint requires it.
func New(opts Options) (*Client, error) {
	desc, err := provider.Get("alphavantage")
	if err != nil {
		return nil, err
	}
	if opts.Credentials.APIKey == "" {
		return nil, provider.NewError(provider.KindMissingCredentials, "alphavantage requires an api key")
	}

	c := &Client{
		desc:   desc,
		apiKey: opts.Credentials.APIKey,
		log:    logger.GetLogger().WithComponent("alphavantage"),
	}
	c.svc = transport.New(transport.Options{
		BaseURL:     baseURL,
		Credentials: opts.Credentials,
		Timeout:     opts.Timeout,
		HTTPClient:  opts.HTTPClient,
		Clock:       opts.Clock,
		// The key travels as a query parameter, not a header.
		AuthHeaders:       func(http.Header) {},
		RequestsPerSecond: opts.RequestsPerSecond,
	})
	return c, nil
}

// Descriptor implements provider.Client.
func (c *Client) Descriptor() provider.Descriptor { return c.desc }

// Mode implements provider.Client. Data-only providers have no paper/live
// split; live is reported for uniformity.
func (c *Client) Mode() provider.Mode { return provider.ModeLive }

// IsRateLimited surfaces the transport's advisory state.
func (c *Client) IsRateLimited() bool { return c.svc.IsRateLimited() }

// TestConnection issues the cheapest meaningful query.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.query(ctx, map[string]interface{}{
		"function": "GLOBAL_QUOTE",
		"symbol":   "IBM",
	})
	return err
}

// query runs one API call and applies Alpha Vantage's in-band error
// conventions: errors and throttle notices arrive inside HTTP 200 bodies.
func (c *Client) query(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	params["apikey"] = c.apiKey

	res, err := c.svc.Execute(ctx, http.MethodGet, "query", params)
	if err != nil {
		return nil, err
	}

	obj, ok := res.Object()
	if !ok {
		return nil, &provider.Error{
			Kind:    provider.KindInvalidResponse,
			Message: "expected a JSON object response",
			Raw:     res.Body,
		}
	}

	if msg, ok := obj["Error Message"].(string); ok {
		return nil, &provider.Error{Kind: provider.KindAPI, Message: msg, Raw: res.Body}
	}
	// A "Note" with HTTP 200 is how the free tier reports throttling.
	if note, ok := obj["Note"].(string); ok {
		return nil, &provider.Error{
			Kind:    provider.KindAPI,
			Status:  429,
			Message: note,
			Raw:     res.Body,
		}
	}

	return obj, nil
}

// RawGlobalQuote returns the GLOBAL_QUOTE payload for a symbol.
func (c *Client) RawGlobalQuote(ctx context.Context, symbol string) (map[string]interface{}, error) {
	return c.query(ctx, map[string]interface{}{"function": "GLOBAL_QUOTE", "symbol": symbol})
}

// RawDailySeries returns the TIME_SERIES_DAILY payload for a symbol.
func (c *Client) RawDailySeries(ctx context.Context, symbol string, full bool) (map[string]interface{}, error) {
	size := "compact"
	if full {
		size = "full"
	}
	return c.query(ctx, map[string]interface{}{
		"function":   "TIME_SERIES_DAILY",
		"symbol":     symbol,
		"outputsize": size,
	})
}

// RawSymbolSearch returns the SYMBOL_SEARCH payload for a keyword.
func (c *Client) RawSymbolSearch(ctx context.Context, keyword string) (map[string]interface{}, error) {
	return c.query(ctx, map[string]interface{}{"function": "SYMBOL_SEARCH", "keywords": keyword})
}

// RawCompanyOverview returns the OVERVIEW payload for a symbol.
func (c *Client) RawCompanyOverview(ctx context.Context, symbol string) (map[string]interface{}, error) {
	return c.query(ctx, map[string]interface{}{"function": "OVERVIEW", "symbol": symbol})
}

// RawIncomeStatement returns the INCOME_STATEMENT payload for a symbol.
func (c *Client) RawIncomeStatement(ctx context.Context, symbol string) (map[string]interface{}, error) {
	return c.query(ctx, map[string]interface{}{"function": "INCOME_STATEMENT", "symbol": symbol})
}

// RawNewsSentiment returns the NEWS_SENTIMENT payload for a symbol.
func (c *Client) RawNewsSentiment(ctx context.Context, symbol string, limit int) (map[string]interface{}, error) {
	if limit <= 0 {
		limit = 50
	}
	return c.query(ctx, map[string]interface{}{
		"function": "NEWS_SENTIMENT",
		"tickers":  symbol,
		"limit":    limit,
	})
}

// EarningsCalendarRows fetches the EARNINGS_CALENDAR endpoint, which answers
// in CSV rather than JSON, and returns the parsed rows including the header.
func (c *Client) EarningsCalendarRows(ctx context.Context, horizon string) ([][]string, error) {
	if horizon == "" {
		horizon = "3month"
	}

	res, err := c.svc.Execute(ctx, http.MethodGet, "query", map[string]interface{}{
		"function": "EARNINGS_CALENDAR",
		"horizon":  horizon,
		"apikey":   c.apiKey,
	})
	if err != nil {
		return nil, err
	}

	// CSV bodies come back undecoded in the fallback envelope.
	rows, err := csv.NewReader(bytes.NewReader(res.Body)).ReadAll()
	if err != nil {
		return nil, &provider.Error{
			Kind:    provider.KindInvalidResponse,
			Message: "parse earnings calendar csv: " + err.Error(),
			Raw:     res.Body,
			Cause:   err,
		}
	}
	return rows, nil
}
