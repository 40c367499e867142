package models

import (
	"time"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus is the canonical lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusWorking   OrderStatus = "working"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Quote is the canonical real-time quote shape produced by adapters and
// provider clients. Every field is always present; providers that do not
// supply a value leave the zero value in place.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	PreviousClose float64 `json:"previous_close"`
	Bid           float64 `json:"bid"`
	Ask           float64 `json:"ask"`
	Timestamp     int64   `json:"timestamp"`
	Source        string  `json:"source"`
}

// Bar is a single OHLCV candle. Timestamp is seconds since epoch; clients
// fetching from providers that report milliseconds must divide by 1000
// before returning bars to callers.
type Bar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// Position is an open holding in a brokerage account. TickerID keeps the
// provider-native instrument identifier so the position can be round-tripped
// into provider-specific calls (e.g. closing the position).
type Position struct {
	Symbol              string  `json:"symbol"`
	TickerID            string  `json:"ticker_id"`
	Quantity            float64 `json:"quantity"`
	AvgPrice            float64 `json:"avg_price"`
	MarketValue         float64 `json:"market_value"`
	CostBasis           float64 `json:"cost_basis"`
	UnrealizedPL        float64 `json:"unrealized_pl"`
	UnrealizedPLPercent float64 `json:"unrealized_pl_percent"`
	LastPrice           float64 `json:"last_price"`
}

// Order is the canonical order record.
type Order struct {
	ID           string      `json:"id"`
	Symbol       string      `json:"symbol"`
	Side         OrderSide   `json:"side"`
	Type         string      `json:"type"`
	Quantity     float64     `json:"quantity"`
	FilledQty    float64     `json:"filled_qty"`
	Price        float64     `json:"price"`
	AvgFillPrice float64     `json:"avg_fill_price"`
	Status       OrderStatus `json:"status"`
	TimeInForce  string      `json:"time_in_force"`
	CreatedAt    int64       `json:"created_at"`
	FilledAt     int64       `json:"filled_at"`
}

// AccountValues summarises brokerage account state.
type AccountValues struct {
	AccountID      string  `json:"account_id"`
	NetLiquidation float64 `json:"net_liquidation"`
	Cash           float64 `json:"cash"`
	BuyingPower    float64 `json:"buying_power"`
	UnrealizedPL   float64 `json:"unrealized_pl"`
	Currency       string  `json:"currency"`
}

// CompanyProfile is the canonical company description record.
type CompanyProfile struct {
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	Exchange    string  `json:"exchange"`
	Industry    string  `json:"industry"`
	Sector      string  `json:"sector"`
	Description string  `json:"description"`
	Website     string  `json:"website"`
	MarketCap   float64 `json:"market_cap"`
	Employees   int64   `json:"employees"`
	Country     string  `json:"country"`
}

// FinancialStatement is a single reported statement period.
type FinancialStatement struct {
	Symbol            string  `json:"symbol"`
	Period            string  `json:"period"`
	FiscalDate        string  `json:"fiscal_date"`
	Revenue           float64 `json:"revenue"`
	NetIncome         float64 `json:"net_income"`
	EPS               float64 `json:"eps"`
	TotalAssets       float64 `json:"total_assets"`
	TotalLiabilities  float64 `json:"total_liabilities"`
	OperatingCashFlow float64 `json:"operating_cash_flow"`
}

// SymbolMatch is a single symbol-search result.
type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Type     string `json:"type"`
	Region   string `json:"region"`
	Currency string `json:"currency"`
	// TickerID is the provider-native instrument id when the provider
	// addresses instruments by an opaque id rather than the symbol.
	TickerID string `json:"ticker_id"`
}

// NewsItem is a canonical news headline.
type NewsItem struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Symbols     []string  `json:"symbols"`
	PublishedAt time.Time `json:"published_at"`
	Sentiment   float64   `json:"sentiment"`
}

// EarningsEvent is one entry in an earnings calendar.
type EarningsEvent struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	ReportDate   string  `json:"report_date"`
	FiscalEnding string  `json:"fiscal_ending"`
	EstimateEPS  float64 `json:"estimate_eps"`
	Currency     string  `json:"currency"`
}

// AuthSession holds the mutable token state of an authenticated provider
// session. Access and refresh tokens rotate together on refresh; the trade
// token is a separate elevation some providers require before order calls.
type AuthSession struct {
	DeviceID     string    `json:"device_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TradeToken   string    `json:"trade_token"`
	UserID       string    `json:"user_id"`
	AccountID    string    `json:"account_id"`
	SecAccountID string    `json:"sec_account_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Authenticated reports whether the session carries an access token.
func (s *AuthSession) Authenticated() bool {
	return s != nil && s.AccessToken != ""
}

// TradeElevated reports whether the session may place trading calls.
func (s *AuthSession) TradeElevated() bool {
	return s.Authenticated() && s.TradeToken != ""
}

// Clear drops all token state, returning the session to anonymous. Called on
// logout and on a detected 401.
func (s *AuthSession) Clear() {
	s.AccessToken = ""
	s.RefreshToken = ""
	s.TradeToken = ""
	s.UserID = ""
	s.AccountID = ""
	s.SecAccountID = ""
	s.ExpiresAt = time.Time{}
}
