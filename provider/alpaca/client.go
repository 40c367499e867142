// Package alpaca implements the Alpaca provider on top of the official Go
// SDK. Paper and live trading use the same API with different hosts and key
// pairs; the mode is fixed at construction.
package alpaca

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"tradeflow/logger"
	"tradeflow/models"
	"tradeflow/provider"
)

const (
	liveURL  = "https://api.alpaca.markets"
	paperURL = "https://paper-api.alpaca.markets"
)

// Options configures a Client.
type Options struct {
	Credentials provider.Credentials
	Mode        provider.Mode
	Timeout     time.Duration
}

// Client wraps the SDK's trading and market-data clients behind the
// canonical provider contracts.
type Client struct {
	desc        provider.Descriptor
	mode        provider.Mode
	tradeClient *alpaca.Client
	mdClient    *marketdata.Client
	log         *logger.Entry
}

var _ provider.MarketData = (*Client)(nil)
var _ provider.Trader = (*Client)(nil)

// New builds an Alpaca client for the given mode.
func New(opts Options) (*Client, error) {
	desc, err := provider.Get("alpaca")
	if err != nil {
		return nil, err
	}
	if opts.Credentials.APIKey == "" || opts.Credentials.APISecret == "" {
		return nil, provider.NewError(provider.KindMissingCredentials, "alpaca requires an api key and secret")
	}

	mode := opts.Mode
	if mode == "" {
		mode = provider.ModePaper
	}
	base := paperURL
	if mode == provider.ModeLive {
		base = liveURL
	}

	var httpClient *http.Client
	if opts.Timeout > 0 {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		desc: desc,
		mode: mode,
		tradeClient: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:     opts.Credentials.APIKey,
			APISecret:  opts.Credentials.APISecret,
			BaseURL:    base,
			HTTPClient: httpClient,
		}),
		mdClient: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:     opts.Credentials.APIKey,
			APISecret:  opts.Credentials.APISecret,
			HTTPClient: httpClient,
		}),
		log: logger.GetLogger().WithComponent("alpaca"),
	}, nil
}

// wrapSDKError converts SDK failures into the structured taxonomy: API
// responses keep their status for retry classification, everything else is a
// transport failure.
func wrapSDKError(err error, op string) error {
	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) {
		return &provider.Error{
			Kind:    provider.KindAPI,
			Status:  apiErr.StatusCode,
			Message: op + ": " + apiErr.Message,
			Cause:   err,
		}
	}
	return &provider.Error{
		Kind:    provider.KindTransport,
		Message: op + ": " + err.Error(),
		Cause:   err,
	}
}

// Descriptor implements provider.Client.
func (c *Client) Descriptor() provider.Descriptor { return c.desc }

// Mode implements provider.Client.
func (c *Client) Mode() provider.Mode { return c.mode }

// TestConnection verifies the key pair by reading the account.
func (c *Client) TestConnection(ctx context.Context) error {
	if _, err := c.tradeClient.GetAccount(); err != nil {
		return wrapSDKError(err, "get account")
	}
	return nil
}

// SearchSymbols filters active US equities by symbol or name.
func (c *Client) SearchSymbols(ctx context.Context, keyword string) ([]models.SymbolMatch, error) {
	assets, err := c.tradeClient.GetAssets(alpaca.GetAssetsRequest{
		Status:     "active",
		AssetClass: "us_equity",
	})
	if err != nil {
		return nil, wrapSDKError(err, "get assets")
	}

	matches := make([]models.SymbolMatch, 0, 10)
	for _, asset := range assets {
		if !containsFold(asset.Symbol, keyword) && !containsFold(asset.Name, keyword) {
			continue
		}
		matches = append(matches, models.SymbolMatch{
			Symbol:   asset.Symbol,
			Name:     asset.Name,
			Exchange: asset.Exchange,
			Type:     "equity",
			Region:   "US",
			Currency: "USD",
			TickerID: asset.ID,
		})
		if len(matches) >= 10 {
			break
		}
	}
	return matches, nil
}

// GetQuote combines the latest trade and quote into a canonical record.
func (c *Client) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	trade, err := c.mdClient.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return models.Quote{}, wrapSDKError(err, "get latest trade")
	}
	quote, err := c.mdClient.GetLatestQuote(symbol, marketdata.GetLatestQuoteRequest{})
	if err != nil {
		return models.Quote{}, wrapSDKError(err, "get latest quote")
	}

	out := models.Quote{Symbol: symbol, Source: c.desc.ID}
	if trade != nil {
		out.Price = trade.Price
		out.Timestamp = trade.Timestamp.Unix()
	}
	if quote != nil {
		out.Bid = quote.BidPrice
		out.Ask = quote.AskPrice
		if out.Timestamp == 0 {
			out.Timestamp = quote.Timestamp.Unix()
		}
	}
	return out, nil
}

var barTimeframes = map[string]marketdata.TimeFrame{
	"1m":  marketdata.OneMin,
	"5m":  marketdata.NewTimeFrame(5, marketdata.Min),
	"15m": marketdata.NewTimeFrame(15, marketdata.Min),
	"30m": marketdata.NewTimeFrame(30, marketdata.Min),
	"1h":  marketdata.OneHour,
	"1d":  marketdata.OneDay,
	"1w":  marketdata.NewTimeFrame(1, marketdata.Week),
	"1mo": marketdata.NewTimeFrame(1, marketdata.Month),
}

// GetBars fetches historical candles, ascending by timestamp. The SDK
// reports time.Time values; canonical bars carry epoch seconds.
func (c *Client) GetBars(ctx context.Context, symbol, timeframe string, count int, extendedHours bool) ([]models.Bar, error) {
	tf, ok := barTimeframes[timeframe]
	if !ok {
		return nil, provider.NewError(provider.KindMissingField, "unsupported timeframe %q", timeframe)
	}
	if count <= 0 {
		count = 100
	}

	feed := marketdata.IEX
	bars, err := c.mdClient.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  tf,
		TotalLimit: count,
		Feed:       feed,
	})
	if err != nil {
		return nil, wrapSDKError(err, "get bars")
	}

	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		out = append(out, models.Bar{
			Timestamp: b.Timestamp.Unix(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    int64(b.Volume),
		})
	}
	return out, nil
}

// GetAccountValues reads the account summary.
func (c *Client) GetAccountValues(ctx context.Context) (models.AccountValues, error) {
	acct, err := c.tradeClient.GetAccount()
	if err != nil {
		return models.AccountValues{}, wrapSDKError(err, "get account")
	}
	return models.AccountValues{
		AccountID:      acct.ID,
		NetLiquidation: acct.Equity.InexactFloat64(),
		Cash:           acct.Cash.InexactFloat64(),
		BuyingPower:    acct.BuyingPower.InexactFloat64(),
		Currency:       acct.Currency,
	}, nil
}

// GetPositions reads open positions.
func (c *Client) GetPositions(ctx context.Context) ([]models.Position, error) {
	positions, err := c.tradeClient.GetPositions()
	if err != nil {
		return nil, wrapSDKError(err, "get positions")
	}

	out := make([]models.Position, 0, len(positions))
	for _, p := range positions {
		pos := models.Position{
			Symbol:      p.Symbol,
			TickerID:    p.AssetID,
			Quantity:    p.Qty.InexactFloat64(),
			AvgPrice:    p.AvgEntryPrice.InexactFloat64(),
			MarketValue: decimalValue(p.MarketValue),
			CostBasis:   p.CostBasis.InexactFloat64(),
		}
		if p.UnrealizedPL != nil {
			pos.UnrealizedPL = p.UnrealizedPL.InexactFloat64()
		}
		if p.UnrealizedPLPC != nil {
			pos.UnrealizedPLPercent = p.UnrealizedPLPC.InexactFloat64() * 100
		}
		if p.CurrentPrice != nil {
			pos.LastPrice = p.CurrentPrice.InexactFloat64()
		}
		out = append(out, pos)
	}
	return out, nil
}

// GetOrders lists recent orders in every status.
func (c *Client) GetOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := c.tradeClient.GetOrders(alpaca.GetOrdersRequest{
		Status: "all",
		Limit:  100,
	})
	if err != nil {
		return nil, wrapSDKError(err, "get orders")
	}

	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, canonicalOrder(o))
	}
	return out, nil
}

// PlaceOrder submits an order through the SDK. Alpaca addresses instruments
// by symbol, so no ticker-id indirection applies.
func (c *Client) PlaceOrder(ctx context.Context, req provider.OrderRequest) (models.Order, error) {
	if req.Symbol == "" {
		return models.Order{}, provider.NewError(provider.KindMissingField, "order field \"Symbol\" is required")
	}
	if req.Quantity <= 0 {
		return models.Order{}, provider.NewError(provider.KindMissingField, "order field \"Quantity\" is required")
	}

	qty := decimal.NewFromFloat(req.Quantity)
	placeReq := alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           &qty,
		Side:          alpaca.Side(req.Side),
		Type:          alpaca.OrderType(orderTypeToWire(req.Type)),
		TimeInForce:   alpaca.TimeInForce(req.TimeInForce),
		ExtendedHours: req.ExtendedHours,
	}
	if req.LimitPrice > 0 {
		price := decimal.NewFromFloat(req.LimitPrice)
		placeReq.LimitPrice = &price
	}
	if req.StopPrice > 0 {
		price := decimal.NewFromFloat(req.StopPrice)
		placeReq.StopPrice = &price
	}

	order, err := c.tradeClient.PlaceOrder(placeReq)
	if err != nil {
		return models.Order{}, &provider.Error{
			Kind:    provider.KindOrderFailed,
			Message: err.Error(),
			Cause:   err,
		}
	}

	c.log.WithFields(logger.Fields{
		"order_id": order.ID,
		"symbol":   req.Symbol,
		"side":     req.Side,
	}).Info("order placed")

	return canonicalOrder(*order), nil
}

// ModifyOrder replaces a working order's quantity and prices.
func (c *Client) ModifyOrder(ctx context.Context, orderID string, req provider.OrderRequest) (models.Order, error) {
	if orderID == "" {
		return models.Order{}, provider.NewError(provider.KindMissingField, "order id is required")
	}

	replaceReq := alpaca.ReplaceOrderRequest{}
	if req.Quantity > 0 {
		qty := decimal.NewFromFloat(req.Quantity)
		replaceReq.Qty = &qty
	}
	if req.LimitPrice > 0 {
		price := decimal.NewFromFloat(req.LimitPrice)
		replaceReq.LimitPrice = &price
	}
	if req.StopPrice > 0 {
		price := decimal.NewFromFloat(req.StopPrice)
		replaceReq.StopPrice = &price
	}

	order, err := c.tradeClient.ReplaceOrder(orderID, replaceReq)
	if err != nil {
		return models.Order{}, &provider.Error{
			Kind:    provider.KindModifyFailed,
			Message: err.Error(),
			Cause:   err,
		}
	}
	return canonicalOrder(*order), nil
}

// CancelOrder cancels a working order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return provider.NewError(provider.KindMissingField, "order id is required")
	}
	if err := c.tradeClient.CancelOrder(orderID); err != nil {
		return &provider.Error{
			Kind:    provider.KindCancelFailed,
			Message: err.Error(),
			Cause:   err,
		}
	}
	return nil
}

func canonicalOrder(o alpaca.Order) models.Order {
	out := models.Order{
		ID:          o.ID,
		Symbol:      o.Symbol,
		Side:        models.OrderSide(o.Side),
		Type:        orderTypeFromWire(string(o.Type)),
		Status:      orderStatusFromWire(o.Status),
		TimeInForce: string(o.TimeInForce),
		CreatedAt:   o.CreatedAt.Unix(),
	}
	if o.Qty != nil {
		out.Quantity = o.Qty.InexactFloat64()
	}
	out.FilledQty = o.FilledQty.InexactFloat64()
	if o.LimitPrice != nil {
		out.Price = o.LimitPrice.InexactFloat64()
	}
	if o.FilledAvgPrice != nil {
		out.AvgFillPrice = o.FilledAvgPrice.InexactFloat64()
	}
	if o.FilledAt != nil {
		out.FilledAt = o.FilledAt.Unix()
	}
	return out
}

func orderTypeToWire(t string) string {
	// Canonical uses stop_limit; the SDK expects the same snake_case names.
	return t
}

func orderTypeFromWire(t string) string {
	return t
}

func orderStatusFromWire(status string) models.OrderStatus {
	switch status {
	case "new", "accepted", "partially_filled", "pending_cancel", "pending_replace":
		return models.OrderStatusWorking
	case "filled":
		return models.OrderStatusFilled
	case "canceled", "expired", "replaced", "done_for_day":
		return models.OrderStatusCancelled
	case "rejected":
		return models.OrderStatusRejected
	default:
		return models.OrderStatusPending
	}
}

func decimalValue(d *decimal.Decimal) float64 {
	if d == nil {
		return 0
	}
	return d.InexactFloat64()
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
