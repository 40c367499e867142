package webull

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"tradeflow/models"
	"tradeflow/provider"
)

// flexFloat decodes WeBull numeric fields, which arrive as either JSON
// numbers or quoted strings depending on the endpoint.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" || s == "-" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type wbQuote struct {
	TickerID    int64     `json:"tickerId"`
	Symbol      string    `json:"symbol"`
	LastPrice   flexFloat `json:"lastPrice"`
	Change      flexFloat `json:"change"`
	ChangeRatio flexFloat `json:"changeRatio"`
	Volume      flexFloat `json:"volume"`
	Open        flexFloat `json:"open"`
	High        flexFloat `json:"high"`
	Low         flexFloat `json:"low"`
	PreClose    flexFloat `json:"preClose"`
	Bid         flexFloat `json:"pPrice"`
	BidPrice    flexFloat `json:"bid"`
	AskPrice    flexFloat `json:"ask"`
	TradeTime   int64     `json:"tradeTime"`
}

// SearchTicker resolves a human symbol or company name to WeBull's internal
// numeric ticker ids. Nearly every other endpoint addresses instruments by
// this opaque id rather than the ticker string.
func (c *Client) SearchTicker(ctx context.Context, keyword string, regionID int) ([]models.SymbolMatch, error) {
	if c.demo {
		return demoSymbolMatches(keyword), nil
	}
	if keyword == "" {
		return nil, provider.NewError(provider.KindMissingField, "search keyword is required")
	}

	res, err := c.svc.Execute(ctx, http.MethodGet, endpointSearchTickers, map[string]interface{}{
		"keyword":  keyword,
		"regionId": regionID,
		"pageSize": 20,
	})
	if err != nil {
		return nil, err
	}

	var body struct {
		Data []struct {
			TickerID     int64  `json:"tickerId"`
			Symbol       string `json:"symbol"`
			Name         string `json:"name"`
			ExchangeCode string `json:"disExchangeCode"`
			SecurityType int    `json:"securityType"`
			RegionCode   string `json:"regionCode"`
			Currency     string `json:"currencyCode"`
		} `json:"data"`
	}
	if err := res.Decode(&body); err != nil {
		return nil, err
	}

	matches := make([]models.SymbolMatch, 0, len(body.Data))
	for _, d := range body.Data {
		matches = append(matches, models.SymbolMatch{
			Symbol:   d.Symbol,
			Name:     d.Name,
			Exchange: d.ExchangeCode,
			Type:     "equity",
			Region:   d.RegionCode,
			Currency: d.Currency,
			TickerID: strconv.FormatInt(d.TickerID, 10),
		})
	}
	return matches, nil
}

// SearchSymbols implements provider.MarketData.
func (c *Client) SearchSymbols(ctx context.Context, keyword string) ([]models.SymbolMatch, error) {
	return c.SearchTicker(ctx, keyword, c.regionID)
}

// GetQuotes fetches real-time quotes for a batch of ticker ids, mapping
// WeBull's field names onto the canonical quote shape inline.
func (c *Client) GetQuotes(ctx context.Context, tickerIDs []string) ([]models.Quote, error) {
	if c.demo {
		return demoQuotes(tickerIDs), nil
	}
	if len(tickerIDs) == 0 {
		return nil, provider.NewError(provider.KindMissingField, "at least one ticker id is required")
	}

	res, err := c.svc.Execute(ctx, http.MethodGet, endpointQuotes, map[string]interface{}{
		"ids":         strings.Join(tickerIDs, ","),
		"includeSecu": 1,
		"delay":       0,
	})
	if err != nil {
		return nil, err
	}

	var raw []wbQuote
	if err := res.Decode(&raw); err != nil {
		return nil, err
	}

	quotes := make([]models.Quote, 0, len(raw))
	for _, q := range raw {
		bid := float64(q.BidPrice)
		if bid == 0 {
			bid = float64(q.Bid)
		}
		quotes = append(quotes, models.Quote{
			Symbol:        q.Symbol,
			Price:         float64(q.LastPrice),
			Change:        float64(q.Change),
			ChangePercent: float64(q.ChangeRatio) * 100,
			Volume:        int64(q.Volume),
			Open:          float64(q.Open),
			High:          float64(q.High),
			Low:           float64(q.Low),
			PreviousClose: float64(q.PreClose),
			Bid:           bid,
			Ask:           float64(q.AskPrice),
			Timestamp:     msToSeconds(q.TradeTime),
			Source:        c.desc.ID,
		})
	}
	return quotes, nil
}

// GetQuote implements provider.MarketData: symbol → ticker id → quote.
func (c *Client) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	if c.demo {
		return demoQuote(symbol), nil
	}

	matches, err := c.SearchTicker(ctx, symbol, c.regionID)
	if err != nil {
		return models.Quote{}, err
	}
	if len(matches) == 0 {
		return models.Quote{}, provider.NewError(provider.KindInvalidResponse, "no ticker id found for %q", symbol)
	}

	quotes, err := c.GetQuotes(ctx, []string{matches[0].TickerID})
	if err != nil {
		return models.Quote{}, err
	}
	if len(quotes) == 0 {
		return models.Quote{}, provider.NewError(provider.KindInvalidResponse, "empty quote batch for %q", symbol)
	}
	quote := quotes[0]
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	return quote, nil
}

type wbBar struct {
	T int64     `json:"t"`
	O flexFloat `json:"o"`
	H flexFloat `json:"h"`
	L flexFloat `json:"l"`
	C flexFloat `json:"c"`
	V flexFloat `json:"v"`
}

// GetBarsByTickerID fetches historical OHLCV candles. WeBull timestamps are
// milliseconds since epoch; they are always converted to seconds here since
// downstream consumers assume seconds.
func (c *Client) GetBarsByTickerID(ctx context.Context, tickerID, timeframe string, count int, extendedHours bool) ([]models.Bar, error) {
	if c.demo {
		return demoBars(count), nil
	}

	tfToken, ok := barTimeframes[timeframe]
	if !ok {
		return nil, provider.NewError(provider.KindMissingField, "unsupported timeframe %q", timeframe)
	}
	if count <= 0 {
		count = 100
	}
	extended := 0
	if extendedHours {
		extended = 1
	}

	res, err := c.svc.Execute(ctx, http.MethodGet, endpointBars, map[string]interface{}{
		"tickerIds":     tickerID,
		"type":          tfToken,
		"count":         count,
		"extendTrading": extended,
	})
	if err != nil {
		return nil, err
	}

	var body []struct {
		TickerID int64           `json:"tickerId"`
		Data     json.RawMessage `json:"data"`
	}
	if err := res.Decode(&body); err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, provider.NewError(provider.KindInvalidResponse, "empty bars response for ticker %s", tickerID)
	}

	var rawBars []wbBar
	if err := json.Unmarshal(body[0].Data, &rawBars); err != nil {
		return nil, &provider.Error{
			Kind:    provider.KindInvalidResponse,
			Message: fmt.Sprintf("decode bars: %v", err),
			Raw:     res.Body,
			Cause:   err,
		}
	}

	bars := make([]models.Bar, 0, len(rawBars))
	for _, b := range rawBars {
		bars = append(bars, models.Bar{
			Timestamp: msToSeconds(b.T),
			Open:      float64(b.O),
			High:      float64(b.H),
			Low:       float64(b.L),
			Close:     float64(b.C),
			Volume:    int64(b.V),
		})
	}
	return bars, nil
}

// GetBars implements provider.MarketData, resolving the symbol to a ticker id
// first.
func (c *Client) GetBars(ctx context.Context, symbol, timeframe string, count int, extendedHours bool) ([]models.Bar, error) {
	if c.demo {
		return demoBars(count), nil
	}

	matches, err := c.SearchTicker(ctx, symbol, c.regionID)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, provider.NewError(provider.KindInvalidResponse, "no ticker id found for %q", symbol)
	}
	return c.GetBarsByTickerID(ctx, matches[0].TickerID, timeframe, count, extendedHours)
}

// GetAccountValues reads the brokerage account summary.
func (c *Client) GetAccountValues(ctx context.Context) (models.AccountValues, error) {
	if c.demo {
		return demoAccountValues(), nil
	}
	if err := c.requireAccount(ctx); err != nil {
		return models.AccountValues{}, err
	}

	endpoint := fmt.Sprintf(endpointAccountHome, c.session.SecAccountID)
	res, err := c.svc.Execute(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.AccountValues{}, err
	}

	var body struct {
		NetLiquidation flexFloat `json:"netLiquidation"`
		TotalCash      flexFloat `json:"totalCash"`
		BuyingPower    flexFloat `json:"buyingPower"`
		UnrealizedPL   flexFloat `json:"unrealizedProfitLoss"`
		Currency       string    `json:"currency"`
	}
	if err := res.Decode(&body); err != nil {
		return models.AccountValues{}, err
	}

	return models.AccountValues{
		AccountID:      c.session.SecAccountID,
		NetLiquidation: float64(body.NetLiquidation),
		Cash:           float64(body.TotalCash),
		BuyingPower:    float64(body.BuyingPower),
		UnrealizedPL:   float64(body.UnrealizedPL),
		Currency:       body.Currency,
	}, nil
}

// GetPositions reads open positions, keeping the provider-native ticker id on
// each record for round-tripping into trading calls.
func (c *Client) GetPositions(ctx context.Context) ([]models.Position, error) {
	if c.demo {
		return demoPositions(), nil
	}
	if err := c.requireAccount(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf(endpointPositions, c.session.SecAccountID)
	res, err := c.svc.Execute(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var body struct {
		Positions []struct {
			Ticker struct {
				TickerID int64  `json:"tickerId"`
				Symbol   string `json:"symbol"`
			} `json:"ticker"`
			Position       flexFloat `json:"position"`
			CostPrice      flexFloat `json:"costPrice"`
			Cost           flexFloat `json:"cost"`
			LastPrice      flexFloat `json:"lastPrice"`
			MarketValue    flexFloat `json:"marketValue"`
			UnrealizedPL   flexFloat `json:"unrealizedProfitLoss"`
			UnrealizedRate flexFloat `json:"unrealizedProfitLossRate"`
		} `json:"positions"`
	}
	if err := res.Decode(&body); err != nil {
		return nil, err
	}

	positions := make([]models.Position, 0, len(body.Positions))
	for _, p := range body.Positions {
		positions = append(positions, models.Position{
			Symbol:              p.Ticker.Symbol,
			TickerID:            strconv.FormatInt(p.Ticker.TickerID, 10),
			Quantity:            float64(p.Position),
			AvgPrice:            float64(p.CostPrice),
			MarketValue:         float64(p.MarketValue),
			CostBasis:           float64(p.Cost),
			UnrealizedPL:        float64(p.UnrealizedPL),
			UnrealizedPLPercent: float64(p.UnrealizedRate) * 100,
			LastPrice:           float64(p.LastPrice),
		})
	}
	return positions, nil
}

// GetOrders reads the order list for the resolved sub-account.
func (c *Client) GetOrders(ctx context.Context) ([]models.Order, error) {
	if c.demo {
		return demoOrders(), nil
	}
	if err := c.requireAccount(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf(endpointOrders, c.session.SecAccountID)
	res, err := c.svc.Execute(ctx, http.MethodGet, endpoint, map[string]interface{}{
		"pageSize": 100,
	})
	if err != nil {
		return nil, err
	}

	var body struct {
		Items []wbOrder `json:"items"`
	}
	if err := res.Decode(&body); err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(body.Items))
	for _, o := range body.Items {
		orders = append(orders, o.canonical())
	}
	return orders, nil
}

// msToSeconds normalizes a milliseconds-since-epoch timestamp to seconds.
func msToSeconds(ms int64) int64 {
	return ms / 1000
}
