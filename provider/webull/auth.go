package webull

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tradeflow/logger"
	"tradeflow/provider"
)

// Account types accepted by the login endpoint.
const (
	AccountTypeEmail = 2
	AccountTypePhone = 1
)

type loginResponse struct {
	AccessToken     string `json:"accessToken"`
	RefreshToken    string `json:"refreshToken"`
	TokenExpireTime string `json:"tokenExpireTime"`
	UUID            string `json:"uuid"`
	NeedCode        bool   `json:"needCode"`
	Code            string `json:"code"`
	Msg             string `json:"msg"`
}

// hashPassword applies WeBull's salted MD5 to the cleartext password. This is
// the bytes-on-the-wire contract of the login endpoint.
func hashPassword(password string) string {
	sum := md5.Sum([]byte(passwordSalt + password))
	return hex.EncodeToString(sum[:])
}

// GenerateDeviceID registers a device identifier with WeBull and stores it in
// the session. Idempotent: an already-registered device id is returned as-is.
func (c *Client) GenerateDeviceID(ctx context.Context) (string, error) {
	if c.session.DeviceID != "" {
		return c.session.DeviceID, nil
	}

	did := strings.ReplaceAll(uuid.NewString(), "-", "")
	res, err := c.svc.Execute(ctx, http.MethodPost, endpointDeviceRegister, map[string]interface{}{
		"deviceId":   did,
		"deviceName": "tradeflow",
		"osType":     "web",
	})
	if err != nil {
		return "", err
	}

	// Some deployments echo back a server-assigned id; prefer it when given.
	if obj, ok := res.Object(); ok {
		if v, ok := obj["deviceId"].(string); ok && v != "" {
			did = v
		}
	}

	c.session.DeviceID = did
	c.log.WithFields(logger.Fields{"device_id": did}).Info("device registered")
	return did, nil
}

// Login authenticates with an account identifier and password, plus an
// optional verification code when the provider demanded one. Three outcomes:
// success (tokens stored and account id resolved), need_code (caller must
// collect a code via SendLoginCode and retry), or a hard auth failure.
func (c *Client) Login(ctx context.Context, account, password string, accountType int, code string) error {
	if account == "" || password == "" {
		return provider.NewError(provider.KindMissingCredentials, "account and password are required")
	}

	if _, err := c.GenerateDeviceID(ctx); err != nil {
		return err
	}

	params := map[string]interface{}{
		"account":     account,
		"accountType": accountType,
		"pwd":         hashPassword(password),
		"deviceId":    c.session.DeviceID,
		"regionId":    c.regionID,
	}
	if code != "" {
		params["extInfo"] = map[string]interface{}{"verificationCode": code}
	}

	res, err := c.svc.Execute(ctx, http.MethodPost, endpointLogin, params)
	if err != nil {
		return err
	}

	var body loginResponse
	if err := res.Decode(&body); err != nil {
		return err
	}

	if body.NeedCode || body.Code == "verify.code.need" {
		return &provider.Error{
			Kind:    provider.KindNeedCode,
			Message: "verification code required",
			Raw:     res.Body,
			Data:    map[string]interface{}{"need_code": true},
		}
	}

	if body.AccessToken == "" {
		msg := body.Msg
		if msg == "" {
			msg = "login rejected"
		}
		return &provider.Error{Kind: provider.KindNoAuth, Message: msg, Raw: res.Body}
	}

	c.session.AccessToken = body.AccessToken
	c.session.RefreshToken = body.RefreshToken
	c.session.UserID = body.UUID
	c.syncTransportCredentials()

	c.log.WithFields(logger.Fields{"user_id": body.UUID}).Info("login succeeded")

	// Nearly every subsequent call addresses the brokerage sub-account, so
	// resolve it eagerly.
	return c.fetchAccountID(ctx)
}

// SendLoginCode asks WeBull to deliver a verification code to the account's
// email or phone.
func (c *Client) SendLoginCode(ctx context.Context, account string, accountType int) error {
	_, err := c.svc.Execute(ctx, http.MethodPost, endpointSendLoginCode, map[string]interface{}{
		"account":     account,
		"accountType": accountType,
		"codeType":    5, // login verification
		"regionId":    c.regionID,
	})
	return err
}

// RefreshToken rotates the access/refresh token pair. It is never called
// automatically inside a data call; callers re-run auth explicitly when a
// call fails with an expired token.
func (c *Client) RefreshToken(ctx context.Context) error {
	if c.session.RefreshToken == "" {
		return provider.NewError(provider.KindNoAuth, "no refresh token held")
	}

	endpoint := fmt.Sprintf(endpointRefreshToken, c.session.RefreshToken)
	res, err := c.svc.Execute(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}

	var body loginResponse
	if err := res.Decode(&body); err != nil {
		return err
	}
	if body.AccessToken == "" {
		return &provider.Error{Kind: provider.KindNoAuth, Message: "refresh rejected", Raw: res.Body}
	}

	c.session.AccessToken = body.AccessToken
	if body.RefreshToken != "" {
		c.session.RefreshToken = body.RefreshToken
	}
	c.syncTransportCredentials()
	return nil
}

// GetTradeToken elevates the session for order placement using the trading
// PIN. The PIN travels MD5-hashed like the login password.
func (c *Client) GetTradeToken(ctx context.Context, tradePIN string) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	if tradePIN == "" {
		return provider.NewError(provider.KindMissingCredentials, "trade PIN is required")
	}

	res, err := c.svc.Execute(ctx, http.MethodPost, endpointTradeToken, map[string]interface{}{
		"pwd": hashPassword(tradePIN),
	})
	if err != nil {
		return err
	}

	var body struct {
		TradeToken string `json:"tradeToken"`
		Msg        string `json:"msg"`
	}
	if err := res.Decode(&body); err != nil {
		return err
	}
	if body.TradeToken == "" {
		return &provider.Error{Kind: provider.KindNoTradeToken, Message: "trade elevation rejected", Raw: res.Body}
	}

	c.session.TradeToken = body.TradeToken
	return nil
}

// fetchAccountID resolves the brokerage sub-account identifiers required by
// the account-state and trading endpoints. The result is cached for the
// session's lifetime.
func (c *Client) fetchAccountID(ctx context.Context) error {
	res, err := c.svc.Execute(ctx, http.MethodGet, endpointAccountList, nil)
	if err != nil {
		return err
	}

	var body struct {
		Data []struct {
			SecAccountID int64  `json:"secAccountId"`
			BrokerID     int64  `json:"brokerId"`
			BrokerName   string `json:"brokerName"`
		} `json:"data"`
	}
	if err := res.Decode(&body); err != nil {
		return err
	}
	if len(body.Data) == 0 {
		return &provider.Error{
			Kind:    provider.KindInvalidResponse,
			Message: "account list is empty",
			Raw:     res.Body,
		}
	}

	c.session.SecAccountID = fmt.Sprintf("%d", body.Data[0].SecAccountID)
	c.session.AccountID = c.session.SecAccountID
	return nil
}

// Logout invalidates the session server-side and clears all token state. The
// session is cleared even when the network call fails.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.svc.Execute(ctx, http.MethodGet, endpointLogout, nil)
	c.session.Clear()
	c.syncTransportCredentials()
	return err
}

// syncTransportCredentials pushes rotated tokens down to the transport so the
// default credential accessors stay consistent with the session.
func (c *Client) syncTransportCredentials() {
	creds := c.svc.Credentials()
	creds.AccessToken = c.session.AccessToken
	creds.RefreshToken = c.session.RefreshToken
	creds.TradeToken = c.session.TradeToken
	creds.DeviceID = c.session.DeviceID
	c.svc.SetCredentials(creds)
}
