package webull

import (
	"tradeflow/models"
)

// Demo payloads are fixed and clearly fabricated so the rest of the system
// and its tests can exercise the full call surface without live credentials.
// Only read methods have demo equivalents; trading still requires a session.

const demoTimestamp = 1681383600 // 2023-04-13 11:00:00 UTC

func demoQuote(symbol string) models.Quote {
	return models.Quote{
		Symbol:        symbol,
		Price:         123.45,
		Change:        1.23,
		ChangePercent: 1.01,
		Volume:        1000000,
		Open:          122.00,
		High:          124.00,
		Low:           121.50,
		PreviousClose: 122.22,
		Bid:           123.40,
		Ask:           123.50,
		Timestamp:     demoTimestamp,
		Source:        "webull-demo",
	}
}

func demoQuotes(tickerIDs []string) []models.Quote {
	quotes := make([]models.Quote, 0, len(tickerIDs))
	for range tickerIDs {
		quotes = append(quotes, demoQuote("DEMO"))
	}
	return quotes
}

func demoSymbolMatches(keyword string) []models.SymbolMatch {
	return []models.SymbolMatch{{
		Symbol:   keyword,
		Name:     "Demo Company Inc",
		Exchange: "DEMO",
		Type:     "equity",
		Region:   "US",
		Currency: "USD",
		TickerID: "900000001",
	}}
}

func demoBars(count int) []models.Bar {
	if count <= 0 || count > 100 {
		count = 100
	}
	bars := make([]models.Bar, 0, count)
	base := int64(demoTimestamp) - int64(count)*60
	for i := 0; i < count; i++ {
		price := 120.0 + float64(i%10)*0.25
		bars = append(bars, models.Bar{
			Timestamp: base + int64(i)*60,
			Open:      price,
			High:      price + 0.5,
			Low:       price - 0.5,
			Close:     price + 0.25,
			Volume:    10000,
		})
	}
	return bars
}

func demoAccountValues() models.AccountValues {
	return models.AccountValues{
		AccountID:      "demo-account",
		NetLiquidation: 100000,
		Cash:           25000,
		BuyingPower:    50000,
		UnrealizedPL:   1234.56,
		Currency:       "USD",
	}
}

func demoPositions() []models.Position {
	return []models.Position{{
		Symbol:              "DEMO",
		TickerID:            "900000001",
		Quantity:            100,
		AvgPrice:            100.00,
		MarketValue:         12345.00,
		CostBasis:           10000.00,
		UnrealizedPL:        2345.00,
		UnrealizedPLPercent: 23.45,
		LastPrice:           123.45,
	}}
}

func demoOrders() []models.Order {
	return []models.Order{{
		ID:           "900000100",
		Symbol:       "DEMO",
		Side:         models.OrderSideBuy,
		Type:         "limit",
		Quantity:     10,
		FilledQty:    10,
		Price:        120.00,
		AvgFillPrice: 119.95,
		Status:       models.OrderStatusFilled,
		TimeInForce:  "day",
		CreatedAt:    demoTimestamp - 3600,
		FilledAt:     demoTimestamp - 3500,
	}}
}
