package adapter

import (
	"context"

	"tradeflow/models"
	"tradeflow/provider"
)

// marketDataClient is satisfied by clients that already answer in canonical
// shapes (WeBull maps quotes inline, Alpaca converts from its SDK types).
type marketDataClient interface {
	provider.MarketData
}

// MarketData adapts a canonical-speaking client: supported kinds delegate
// straight through, everything else falls back to the base defaults.
type MarketData struct {
	Base
	client provider.MarketData
}

var _ DataSource = (*MarketData)(nil)

// NewMarketData wraps a market-data client.
func NewMarketData(providerID string, client provider.MarketData) *MarketData {
	return &MarketData{Base: NewBase(providerID), client: client}
}

func (a *MarketData) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	return a.client.GetQuote(ctx, symbol)
}

func (a *MarketData) GetHistoricalData(ctx context.Context, symbol, timeframe string, count int) ([]models.Bar, error) {
	return a.client.GetBars(ctx, symbol, timeframe, count, false)
}

func (a *MarketData) SearchSymbols(ctx context.Context, keyword string) ([]models.SymbolMatch, error) {
	return a.client.SearchSymbols(ctx, keyword)
}
