// Package adapter maps provider-native response shapes onto the canonical
// schema. The base adapter guarantees every caller receives a shape-complete
// record for every data kind even before provider-specific mapping exists;
// concrete adapters override the kinds their provider supports.
package adapter

import (
	"context"

	"tradeflow/models"
	"tradeflow/provider"
)

// DataSource is the canonical data contract the rest of an application
// should rely on instead of any provider-specific shape.
type DataSource interface {
	GetQuote(ctx context.Context, symbol string) (models.Quote, error)
	GetHistoricalData(ctx context.Context, symbol, timeframe string, count int) ([]models.Bar, error)
	GetCompanyProfile(ctx context.Context, symbol string) (models.CompanyProfile, error)
	GetFinancialStatements(ctx context.Context, symbol string) ([]models.FinancialStatement, error)
	SearchSymbols(ctx context.Context, keyword string) ([]models.SymbolMatch, error)
	GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error)
	GetEarningsCalendar(ctx context.Context, horizon string) ([]models.EarningsEvent, error)
}

// Base supplies all-defaulted records for every data kind. Concrete adapters
// embed it and override the kinds they can actually map, so consumers never
// see missing fields during incremental rollout of a new provider.
type Base struct {
	providerID string
}

// NewBase builds a Base stamped with the provider id.
func NewBase(providerID string) Base {
	return Base{providerID: providerID}
}

// ProviderID returns the bound provider's id.
func (b Base) ProviderID() string { return b.providerID }

// NormalizeQuote returns a shape-complete zero quote.
func (b Base) NormalizeQuote(symbol string, raw map[string]interface{}) models.Quote {
	return models.Quote{Symbol: symbol, Source: b.providerID}
}

// NormalizeBars returns an empty, non-nil bar sequence.
func (b Base) NormalizeBars(raw map[string]interface{}) []models.Bar {
	return []models.Bar{}
}

// NormalizeCompanyProfile returns a shape-complete zero profile.
func (b Base) NormalizeCompanyProfile(symbol string, raw map[string]interface{}) models.CompanyProfile {
	return models.CompanyProfile{Symbol: symbol}
}

// NormalizeFinancialStatements returns an empty, non-nil statement list.
func (b Base) NormalizeFinancialStatements(raw map[string]interface{}) []models.FinancialStatement {
	return []models.FinancialStatement{}
}

// NormalizeSymbolSearch returns an empty, non-nil match list.
func (b Base) NormalizeSymbolSearch(raw map[string]interface{}) []models.SymbolMatch {
	return []models.SymbolMatch{}
}

// NormalizeNews returns an empty, non-nil news list.
func (b Base) NormalizeNews(raw map[string]interface{}) []models.NewsItem {
	return []models.NewsItem{}
}

// NormalizeEarnings returns an empty, non-nil earnings list.
func (b Base) NormalizeEarnings(rows [][]string) []models.EarningsEvent {
	return []models.EarningsEvent{}
}

// GetQuote implements DataSource with the default empty record.
func (b Base) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	return b.NormalizeQuote(symbol, nil), nil
}

// GetHistoricalData implements DataSource with the default empty sequence.
func (b Base) GetHistoricalData(ctx context.Context, symbol, timeframe string, count int) ([]models.Bar, error) {
	return b.NormalizeBars(nil), nil
}

// GetCompanyProfile implements DataSource with the default empty record.
func (b Base) GetCompanyProfile(ctx context.Context, symbol string) (models.CompanyProfile, error) {
	return b.NormalizeCompanyProfile(symbol, nil), nil
}

// GetFinancialStatements implements DataSource with the default empty list.
func (b Base) GetFinancialStatements(ctx context.Context, symbol string) ([]models.FinancialStatement, error) {
	return b.NormalizeFinancialStatements(nil), nil
}

// SearchSymbols implements DataSource with the default empty list.
func (b Base) SearchSymbols(ctx context.Context, keyword string) ([]models.SymbolMatch, error) {
	return b.NormalizeSymbolSearch(nil), nil
}

// GetNews implements DataSource with the default empty list.
func (b Base) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	return b.NormalizeNews(nil), nil
}

// GetEarningsCalendar implements DataSource with the default empty list.
func (b Base) GetEarningsCalendar(ctx context.Context, horizon string) ([]models.EarningsEvent, error) {
	return b.NormalizeEarnings(nil), nil
}

// For wraps a constructed provider client in its adapter. Clients without a
// registered adapter get the base defaults so every data kind still answers
// with a shape-complete record.
func For(client provider.Client) DataSource {
	switch c := client.(type) {
	case alphaVantageClient:
		return NewAlphaVantage(c)
	case marketDataClient:
		return NewMarketData(client.Descriptor().ID, c)
	default:
		return Base{providerID: client.Descriptor().ID}
	}
}
