// Package webull implements the WeBull provider client: device registration,
// password login with optional 2FA, token refresh, trade-token elevation,
// market data reads and order management over WeBull's REST hosts.
package webull

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"tradeflow/logger"
	"tradeflow/models"
	"tradeflow/provider"
	"tradeflow/transport"
)

const defaultRegionID = 6 // US markets

// Options configures a Client. Mode and credentials are fixed for the
// client's lifetime.
type Options struct {
	Credentials provider.Credentials
	Mode        provider.Mode
	Timeout     time.Duration
	// Demo switches every read method to canned sample payloads with zero
	// network calls. It is an explicit flag, never inferred from missing
	// credentials.
	Demo       bool
	RegionID   int
	HTTPClient *http.Client
	Clock      transport.Clock
}

// Client is a WeBull session. It holds mutable token state and is owned by a
// single logical operation at a time; concurrent use requires external
// synchronization.
type Client struct {
	desc     provider.Descriptor
	mode     provider.Mode
	svc      *transport.Service
	session  models.AuthSession
	demo     bool
	regionID int
	validate *validator.Validate
	log      *logger.Entry
}

var _ provider.MarketData = (*Client)(nil)
var _ provider.Trader = (*Client)(nil)

// New builds a WeBull client bound to the given credentials and mode.
func New(opts Options) (*Client, error) {
	desc, err := provider.Get("webull")
	if err != nil {
		return nil, err
	}

	mode := opts.Mode
	if mode == "" {
		mode = provider.ModePaper
	}

	regionID := opts.RegionID
	if regionID == 0 {
		regionID = defaultRegionID
	}

	c := &Client{
		desc: desc,
		mode: mode,
		session: models.AuthSession{
			DeviceID:     opts.Credentials.DeviceID,
			AccessToken:  opts.Credentials.AccessToken,
			RefreshToken: opts.Credentials.RefreshToken,
			TradeToken:   opts.Credentials.TradeToken,
		},
		demo:     opts.Demo,
		regionID: regionID,
		validate: validator.New(),
		log:      logger.GetLogger().WithComponent("webull"),
	}

	c.svc = transport.New(transport.Options{
		Credentials: opts.Credentials,
		Timeout:     opts.Timeout,
		HTTPClient:  opts.HTTPClient,
		Clock:       opts.Clock,
		AuthHeaders: c.authHeaders,
	})

	return c, nil
}

// Descriptor implements provider.Client.
func (c *Client) Descriptor() provider.Descriptor { return c.desc }

// Mode implements provider.Client.
func (c *Client) Mode() provider.Mode { return c.mode }

// Session returns a copy of the current token state so the persistence layer
// can write rotated tokens back to its store.
func (c *Client) Session() models.AuthSession { return c.session }

// Demo reports whether the client serves canned payloads.
func (c *Client) Demo() bool { return c.demo }

// IsRateLimited surfaces the transport's advisory rate-limit state.
func (c *Client) IsRateLimited() bool { return c.svc.IsRateLimited() }

// authHeaders attaches WeBull's custom auth headers. WeBull does not use
// bearer tokens: the device id travels as "did", the access token as
// "access_token" and the trade token as "t_token".
func (c *Client) authHeaders(h http.Header) {
	if c.session.DeviceID != "" {
		h.Set("did", c.session.DeviceID)
	}
	if c.session.AccessToken != "" {
		h.Set("access_token", c.session.AccessToken)
	}
	if c.session.TradeToken != "" {
		h.Set("t_token", c.session.TradeToken)
	}
	h.Set("t_time", fmt.Sprintf("%d", time.Now().UnixMilli()))
}

// TestConnection resolves a well-known ticker to verify reachability and, in
// demo mode, succeeds without a network call.
func (c *Client) TestConnection(ctx context.Context) error {
	if c.demo {
		return nil
	}
	_, err := c.SearchTicker(ctx, "AAPL", c.regionID)
	return err
}

// requireAuth gates authenticated endpoints.
func (c *Client) requireAuth() error {
	if !c.session.Authenticated() {
		return provider.NewError(provider.KindNoAuth, "not logged in")
	}
	return nil
}

// requireTrade gates order mutation endpoints. A missing trade token is a
// distinguishable precondition failure, not an attempted call.
func (c *Client) requireTrade() error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	if !c.session.TradeElevated() {
		return provider.NewError(provider.KindNoTradeToken, "trade token required for order operations")
	}
	return nil
}

// requireAccount ensures the brokerage sub-account id has been resolved.
func (c *Client) requireAccount(ctx context.Context) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	if c.session.SecAccountID != "" {
		return nil
	}
	return c.fetchAccountID(ctx)
}
