package adapter

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"tradeflow/models"
	"tradeflow/provider"
)

// alphaVantageClient is the raw query surface of the Alpha Vantage client.
type alphaVantageClient interface {
	provider.Client
	RawGlobalQuote(ctx context.Context, symbol string) (map[string]interface{}, error)
	RawDailySeries(ctx context.Context, symbol string, full bool) (map[string]interface{}, error)
	RawSymbolSearch(ctx context.Context, keyword string) (map[string]interface{}, error)
	RawCompanyOverview(ctx context.Context, symbol string) (map[string]interface{}, error)
	RawIncomeStatement(ctx context.Context, symbol string) (map[string]interface{}, error)
	RawNewsSentiment(ctx context.Context, symbol string, limit int) (map[string]interface{}, error)
	EarningsCalendarRows(ctx context.Context, horizon string) ([][]string, error)
}

// AlphaVantage normalizes Alpha Vantage's keyed-and-numbered field names
// onto the canonical schema.
type AlphaVantage struct {
	Base
	client alphaVantageClient
}

var _ DataSource = (*AlphaVantage)(nil)

// NewAlphaVantage wraps a raw Alpha Vantage client.
func NewAlphaVantage(client alphaVantageClient) *AlphaVantage {
	return &AlphaVantage{Base: NewBase(client.Descriptor().ID), client: client}
}

func (a *AlphaVantage) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	raw, err := a.client.RawGlobalQuote(ctx, symbol)
	if err != nil {
		return models.Quote{}, err
	}
	return a.NormalizeQuote(symbol, raw), nil
}

// NormalizeQuote maps the "Global Quote" block. Unmapped fields stay zero so
// the record is always shape-complete.
func (a *AlphaVantage) NormalizeQuote(symbol string, raw map[string]interface{}) models.Quote {
	quote := a.Base.NormalizeQuote(symbol, raw)

	block := subObject(raw, "Global Quote")
	if block == nil {
		return quote
	}

	if s := str(block, "01. symbol"); s != "" {
		quote.Symbol = s
	}
	quote.Open = num(block, "02. open")
	quote.High = num(block, "03. high")
	quote.Low = num(block, "04. low")
	quote.Price = num(block, "05. price")
	quote.Volume = int64(num(block, "06. volume"))
	quote.PreviousClose = num(block, "08. previous close")
	quote.Change = num(block, "09. change")
	quote.ChangePercent = num(block, "10. change percent")
	if day := str(block, "07. latest trading day"); day != "" {
		if t, err := time.Parse("2006-01-02", day); err == nil {
			quote.Timestamp = t.Unix()
		}
	}
	return quote
}

func (a *AlphaVantage) GetHistoricalData(ctx context.Context, symbol, timeframe string, count int) ([]models.Bar, error) {
	// Alpha Vantage serves daily candles; intraday timeframes fall back to
	// the daily series truncated to count.
	raw, err := a.client.RawDailySeries(ctx, symbol, count > 100)
	if err != nil {
		return nil, err
	}
	bars := a.NormalizeBars(raw)
	if count > 0 && len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}

// NormalizeBars maps "Time Series (Daily)" into ascending canonical bars.
func (a *AlphaVantage) NormalizeBars(raw map[string]interface{}) []models.Bar {
	series := subObject(raw, "Time Series (Daily)")
	if series == nil {
		return a.Base.NormalizeBars(raw)
	}

	bars := make([]models.Bar, 0, len(series))
	for day, v := range series {
		fields, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		t, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		bars = append(bars, models.Bar{
			Timestamp: t.Unix(),
			Open:      num(fields, "1. open"),
			High:      num(fields, "2. high"),
			Low:       num(fields, "3. low"),
			Close:     num(fields, "4. close"),
			Volume:    int64(num(fields, "5. volume")),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })
	return bars
}

func (a *AlphaVantage) GetCompanyProfile(ctx context.Context, symbol string) (models.CompanyProfile, error) {
	raw, err := a.client.RawCompanyOverview(ctx, symbol)
	if err != nil {
		return models.CompanyProfile{}, err
	}
	return a.NormalizeCompanyProfile(symbol, raw), nil
}

// NormalizeCompanyProfile maps the OVERVIEW payload.
func (a *AlphaVantage) NormalizeCompanyProfile(symbol string, raw map[string]interface{}) models.CompanyProfile {
	profile := a.Base.NormalizeCompanyProfile(symbol, raw)
	if raw == nil {
		return profile
	}

	if s := str(raw, "Symbol"); s != "" {
		profile.Symbol = s
	}
	profile.Name = str(raw, "Name")
	profile.Exchange = str(raw, "Exchange")
	profile.Industry = str(raw, "Industry")
	profile.Sector = str(raw, "Sector")
	profile.Description = str(raw, "Description")
	profile.Website = str(raw, "OfficialSite")
	profile.MarketCap = num(raw, "MarketCapitalization")
	profile.Country = str(raw, "Country")
	return profile
}

func (a *AlphaVantage) GetFinancialStatements(ctx context.Context, symbol string) ([]models.FinancialStatement, error) {
	raw, err := a.client.RawIncomeStatement(ctx, symbol)
	if err != nil {
		return nil, err
	}
	statements := a.NormalizeFinancialStatements(raw)
	for i := range statements {
		statements[i].Symbol = symbol
	}
	return statements, nil
}

// NormalizeFinancialStatements maps annual income statement reports.
func (a *AlphaVantage) NormalizeFinancialStatements(raw map[string]interface{}) []models.FinancialStatement {
	reports, ok := raw["annualReports"].([]interface{})
	if !ok {
		return a.Base.NormalizeFinancialStatements(raw)
	}

	statements := make([]models.FinancialStatement, 0, len(reports))
	for _, r := range reports {
		fields, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		statements = append(statements, models.FinancialStatement{
			Period:     "annual",
			FiscalDate: str(fields, "fiscalDateEnding"),
			Revenue:    num(fields, "totalRevenue"),
			NetIncome:  num(fields, "netIncome"),
		})
	}
	return statements
}

func (a *AlphaVantage) SearchSymbols(ctx context.Context, keyword string) ([]models.SymbolMatch, error) {
	raw, err := a.client.RawSymbolSearch(ctx, keyword)
	if err != nil {
		return nil, err
	}
	return a.NormalizeSymbolSearch(raw), nil
}

// NormalizeSymbolSearch maps the bestMatches list.
func (a *AlphaVantage) NormalizeSymbolSearch(raw map[string]interface{}) []models.SymbolMatch {
	best, ok := raw["bestMatches"].([]interface{})
	if !ok {
		return a.Base.NormalizeSymbolSearch(raw)
	}

	matches := make([]models.SymbolMatch, 0, len(best))
	for _, m := range best {
		fields, ok := m.(map[string]interface{})
		if !ok {
			continue
		}
		matches = append(matches, models.SymbolMatch{
			Symbol:   str(fields, "1. symbol"),
			Name:     str(fields, "2. name"),
			Type:     str(fields, "3. type"),
			Region:   str(fields, "4. region"),
			Currency: str(fields, "8. currency"),
		})
	}
	return matches
}

func (a *AlphaVantage) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	raw, err := a.client.RawNewsSentiment(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}
	return a.NormalizeNews(raw), nil
}

// NormalizeNews maps the NEWS_SENTIMENT feed.
func (a *AlphaVantage) NormalizeNews(raw map[string]interface{}) []models.NewsItem {
	feed, ok := raw["feed"].([]interface{})
	if !ok {
		return a.Base.NormalizeNews(raw)
	}

	items := make([]models.NewsItem, 0, len(feed))
	for _, f := range feed {
		fields, ok := f.(map[string]interface{})
		if !ok {
			continue
		}
		item := models.NewsItem{
			Title:     str(fields, "title"),
			Summary:   str(fields, "summary"),
			URL:       str(fields, "url"),
			Source:    str(fields, "source"),
			Sentiment: num(fields, "overall_sentiment_score"),
		}
		if published := str(fields, "time_published"); published != "" {
			if t, err := time.Parse("20060102T150405", published); err == nil {
				item.PublishedAt = t
			}
		}
		if tickers, ok := fields["ticker_sentiment"].([]interface{}); ok {
			for _, ts := range tickers {
				if tf, ok := ts.(map[string]interface{}); ok {
					if sym := str(tf, "ticker"); sym != "" {
						item.Symbols = append(item.Symbols, sym)
					}
				}
			}
		}
		items = append(items, item)
	}
	return items
}

func (a *AlphaVantage) GetEarningsCalendar(ctx context.Context, horizon string) ([]models.EarningsEvent, error) {
	rows, err := a.client.EarningsCalendarRows(ctx, horizon)
	if err != nil {
		return nil, err
	}
	return a.NormalizeEarnings(rows), nil
}

// NormalizeEarnings maps the CSV rows (header: symbol, name, reportDate,
// fiscalDateEnding, estimate, currency).
func (a *AlphaVantage) NormalizeEarnings(rows [][]string) []models.EarningsEvent {
	if len(rows) < 2 {
		return a.Base.NormalizeEarnings(rows)
	}

	events := make([]models.EarningsEvent, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 6 {
			continue
		}
		estimate, _ := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
		events = append(events, models.EarningsEvent{
			Symbol:       row[0],
			Name:         row[1],
			ReportDate:   row[2],
			FiscalEnding: row[3],
			EstimateEPS:  estimate,
			Currency:     row[5],
		})
	}
	return events
}

// subObject returns the nested object at key when present.
func subObject(raw map[string]interface{}, key string) map[string]interface{} {
	if raw == nil {
		return nil
	}
	obj, _ := raw[key].(map[string]interface{})
	return obj
}

// str reads a string field, empty when absent.
func str(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}

// num reads a numeric field that may arrive as a JSON number or a string,
// tolerating Alpha Vantage's trailing percent signs.
func num(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(v), "%")
		f, _ := strconv.ParseFloat(trimmed, 64)
		return f
	default:
		return 0
	}
}
