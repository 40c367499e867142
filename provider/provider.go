// Package provider defines the descriptor directory, credential bundle,
// error taxonomy and client contracts shared by every provider integration.
package provider

import (
	"context"

	"tradeflow/models"
)

// AuthType describes how a provider authenticates requests.
type AuthType string

const (
	AuthAPIKey   AuthType = "api_key"
	AuthOAuth    AuthType = "oauth"
	AuthBotToken AuthType = "bot_token"
)

// APIType classifies what a provider is for.
type APIType string

const (
	APITrading   APIType = "trading"
	APIDataOnly  APIType = "data_only"
	APIMessaging APIType = "messaging"
)

// Mode selects the credential set for trading providers. It is fixed at
// client construction and never silently switched.
type Mode string

const (
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

// DataType names a kind of market data for tracker-driven provider selection.
type DataType string

const (
	DataQuote    DataType = "quote"
	DataBars     DataType = "bars"
	DataProfile  DataType = "company_profile"
	DataNews     DataType = "news"
	DataEarnings DataType = "earnings"
	DataSearch   DataType = "search"
)

// Credentials is the resolved per-provider, per-mode credential bundle. The
// persistence layer owns it; clients only consume a copy at construction and
// report rotated tokens back through the session.
type Credentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	RefreshToken string
	TradeToken   string
	DeviceID     string
}

// Empty reports whether no credential material is present at all.
func (c Credentials) Empty() bool {
	return c.APIKey == "" && c.APISecret == "" && c.AccessToken == "" && c.RefreshToken == ""
}

// Descriptor is the immutable identity record of a known provider.
type Descriptor struct {
	ID           string
	Name         string
	Auth         AuthType
	Type         APIType
	Capabilities map[string]bool
	Sandbox      bool
}

// Can reports whether the provider advertises the named capability.
func (d Descriptor) Can(capability string) bool {
	return d.Capabilities[capability]
}

// Client is the minimal surface every provider client exposes.
type Client interface {
	// Descriptor returns the directory entry the client is bound to.
	Descriptor() Descriptor
	// Mode returns the paper/live mode fixed at construction.
	Mode() Mode
	// TestConnection performs a cheap end-to-end call against the provider.
	TestConnection(ctx context.Context) error
}

// MarketData is implemented by clients that serve market data requests.
type MarketData interface {
	Client
	SearchSymbols(ctx context.Context, keyword string) ([]models.SymbolMatch, error)
	GetQuote(ctx context.Context, symbol string) (models.Quote, error)
	GetBars(ctx context.Context, symbol, timeframe string, count int, extendedHours bool) ([]models.Bar, error)
}

// Trader is implemented by clients that can read account state and manage
// orders. All methods require an authenticated session; order mutation may
// additionally require trade-token elevation.
type Trader interface {
	Client
	GetAccountValues(ctx context.Context) (models.AccountValues, error)
	GetPositions(ctx context.Context) ([]models.Position, error)
	GetOrders(ctx context.Context) ([]models.Order, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (models.Order, error)
	ModifyOrder(ctx context.Context, orderID string, req OrderRequest) (models.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// OrderRequest is the canonical order submission payload. Validation tags
// enforce the fields every provider requires before any network call is made.
type OrderRequest struct {
	Symbol        string           `json:"symbol" validate:"required"`
	TickerID      string           `json:"ticker_id"`
	Side          models.OrderSide `json:"side" validate:"required,oneof=buy sell"`
	Type          string           `json:"type" validate:"required,oneof=market limit stop stop_limit"`
	TimeInForce   string           `json:"time_in_force" validate:"required,oneof=day gtc ioc"`
	Quantity      float64          `json:"quantity" validate:"required,gt=0"`
	LimitPrice    float64          `json:"limit_price" validate:"required_if=Type limit,required_if=Type stop_limit"`
	StopPrice     float64          `json:"stop_price" validate:"required_if=Type stop,required_if=Type stop_limit"`
	ExtendedHours bool             `json:"extended_hours"`
}
