package adapter

import (
	"context"
	"testing"

	"tradeflow/models"
	"tradeflow/provider"
)

func TestBaseDefaultsAreShapeComplete(t *testing.T) {
	b := NewBase("polygon")
	ctx := context.Background()

	quote, err := b.GetQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if quote.Symbol != "AAPL" || quote.Source != "polygon" {
		t.Errorf("default quote must carry symbol and source: %+v", quote)
	}

	bars, err := b.GetHistoricalData(ctx, "AAPL", "1d", 10)
	if err != nil {
		t.Fatalf("GetHistoricalData failed: %v", err)
	}
	if bars == nil {
		t.Error("default bars must be empty, not nil")
	}

	profile, err := b.GetCompanyProfile(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetCompanyProfile failed: %v", err)
	}
	if profile.Symbol != "AAPL" {
		t.Errorf("default profile must carry the symbol: %+v", profile)
	}

	news, err := b.GetNews(ctx, "AAPL", 5)
	if err != nil {
		t.Fatalf("GetNews failed: %v", err)
	}
	if news == nil {
		t.Error("default news must be empty, not nil")
	}

	matches, err := b.SearchSymbols(ctx, "apple")
	if err != nil {
		t.Fatalf("SearchSymbols failed: %v", err)
	}
	if matches == nil {
		t.Error("default matches must be empty, not nil")
	}
}

func TestAlphaVantageNormalizeQuote(t *testing.T) {
	a := &AlphaVantage{Base: NewBase("alphavantage")}

	raw := map[string]interface{}{
		"Global Quote": map[string]interface{}{
			"01. symbol":             "IBM",
			"02. open":               "141.0",
			"03. high":               "143.5",
			"04. low":                "140.2",
			"05. price":              "142.50",
			"06. volume":             "3500000",
			"07. latest trading day": "2023-04-13",
			"08. previous close":     "141.80",
			"09. change":             "0.70",
			"10. change percent":     "0.4937%",
		},
	}

	quote := a.NormalizeQuote("IBM", raw)
	if quote.Price != 142.50 {
		t.Errorf("unexpected price: %v", quote.Price)
	}
	if quote.ChangePercent != 0.4937 {
		t.Errorf("percent suffix not stripped: %v", quote.ChangePercent)
	}
	if quote.Volume != 3500000 {
		t.Errorf("unexpected volume: %d", quote.Volume)
	}
	if quote.Timestamp == 0 {
		t.Error("trading day not parsed into a timestamp")
	}
}

func TestAlphaVantageNormalizeQuoteMissingBlock(t *testing.T) {
	a := &AlphaVantage{Base: NewBase("alphavantage")}

	quote := a.NormalizeQuote("IBM", map[string]interface{}{})
	if quote.Symbol != "IBM" || quote.Source != "alphavantage" {
		t.Errorf("fallback quote must stay shape-complete: %+v", quote)
	}
	if quote.Price != 0 {
		t.Errorf("missing block must yield zero values: %+v", quote)
	}
}

func TestAlphaVantageNormalizeBarsAscending(t *testing.T) {
	a := &AlphaVantage{Base: NewBase("alphavantage")}

	raw := map[string]interface{}{
		"Time Series (Daily)": map[string]interface{}{
			"2023-04-13": map[string]interface{}{
				"1. open": "142.0", "2. high": "143.0", "3. low": "141.0",
				"4. close": "142.5", "5. volume": "1000",
			},
			"2023-04-12": map[string]interface{}{
				"1. open": "140.0", "2. high": "141.5", "3. low": "139.5",
				"4. close": "141.0", "5. volume": "900",
			},
		},
	}

	bars := a.NormalizeBars(raw)
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Timestamp >= bars[1].Timestamp {
		t.Error("bars must be sorted ascending by timestamp")
	}
	if bars[1].Close != 142.5 {
		t.Errorf("unexpected close: %v", bars[1].Close)
	}
}

func TestAlphaVantageNormalizeSymbolSearch(t *testing.T) {
	a := &AlphaVantage{Base: NewBase("alphavantage")}

	raw := map[string]interface{}{
		"bestMatches": []interface{}{
			map[string]interface{}{
				"1. symbol": "IBM", "2. name": "International Business Machines",
				"3. type": "Equity", "4. region": "United States", "8. currency": "USD",
			},
		},
	}

	matches := a.NormalizeSymbolSearch(raw)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Symbol != "IBM" || matches[0].Currency != "USD" {
		t.Errorf("unexpected match: %+v", matches[0])
	}
}

func TestAlphaVantageNormalizeEarningsSkipsHeader(t *testing.T) {
	a := &AlphaVantage{Base: NewBase("alphavantage")}

	rows := [][]string{
		{"symbol", "name", "reportDate", "fiscalDateEnding", "estimate", "currency"},
		{"IBM", "International Business Machines", "2023-04-19", "2023-03-31", "1.26", "USD"},
		{"BAD"},
	}

	events := a.NormalizeEarnings(rows)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Symbol != "IBM" || events[0].EstimateEPS != 1.26 {
		t.Errorf("unexpected event: %+v", events[0])
	}
}

// fakeMarketData is a canonical-speaking client for dispatcher tests.
type fakeMarketData struct {
	desc provider.Descriptor
}

func (f *fakeMarketData) Descriptor() provider.Descriptor            { return f.desc }
func (f *fakeMarketData) Mode() provider.Mode                        { return provider.ModePaper }
func (f *fakeMarketData) TestConnection(ctx context.Context) error   { return nil }
func (f *fakeMarketData) SearchSymbols(ctx context.Context, keyword string) ([]models.SymbolMatch, error) {
	return []models.SymbolMatch{{Symbol: "AAPL"}}, nil
}
func (f *fakeMarketData) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	return models.Quote{Symbol: symbol, Price: 42, Source: f.desc.ID}, nil
}
func (f *fakeMarketData) GetBars(ctx context.Context, symbol, timeframe string, count int, extendedHours bool) ([]models.Bar, error) {
	return []models.Bar{{Timestamp: 1681383600, Close: 42}}, nil
}

func TestMarketDataAdapterDelegates(t *testing.T) {
	client := &fakeMarketData{desc: provider.Descriptor{ID: "webull"}}
	src := For(client)
	ctx := context.Background()

	quote, err := src.GetQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if quote.Price != 42 {
		t.Errorf("delegation lost the quote: %+v", quote)
	}

	bars, err := src.GetHistoricalData(ctx, "AAPL", "1d", 1)
	if err != nil {
		t.Fatalf("GetHistoricalData failed: %v", err)
	}
	if len(bars) != 1 || bars[0].Close != 42 {
		t.Errorf("delegation lost the bars: %v", bars)
	}

	// Unsupported kinds fall back to shape-complete defaults.
	profile, err := src.GetCompanyProfile(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetCompanyProfile failed: %v", err)
	}
	if profile.Symbol != "AAPL" {
		t.Errorf("fallback profile incomplete: %+v", profile)
	}
}
