package webull

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"tradeflow/logger"
	"tradeflow/models"
	"tradeflow/provider"
)

// wbOrder is WeBull's native order record.
type wbOrder struct {
	OrderID int64 `json:"orderId"`
	Ticker  struct {
		TickerID int64  `json:"tickerId"`
		Symbol   string `json:"symbol"`
	} `json:"ticker"`
	Action         string    `json:"action"`
	OrderType      string    `json:"orderType"`
	TotalQuantity  flexFloat `json:"totalQuantity"`
	FilledQuantity flexFloat `json:"filledQuantity"`
	LmtPrice       flexFloat `json:"lmtPrice"`
	AvgFilledPrice flexFloat `json:"avgFilledPrice"`
	Status         string    `json:"status"`
	TimeInForce    string    `json:"timeInForce"`
	CreateTime     int64     `json:"createTime0"`
	FilledTime     int64     `json:"filledTime0"`
}

func (o wbOrder) canonical() models.Order {
	side := models.OrderSideBuy
	if strings.EqualFold(o.Action, "SELL") {
		side = models.OrderSideSell
	}
	return models.Order{
		ID:           strconv.FormatInt(o.OrderID, 10),
		Symbol:       o.Ticker.Symbol,
		Side:         side,
		Type:         orderTypeFromWire(o.OrderType),
		Quantity:     float64(o.TotalQuantity),
		FilledQty:    float64(o.FilledQuantity),
		Price:        float64(o.LmtPrice),
		AvgFillPrice: float64(o.AvgFilledPrice),
		Status:       orderStatusFromWire(o.Status),
		TimeInForce:  strings.ToLower(o.TimeInForce),
		CreatedAt:    msToSeconds(o.CreateTime),
		FilledAt:     msToSeconds(o.FilledTime),
	}
}

var orderTypesToWire = map[string]string{
	"market":     "MKT",
	"limit":      "LMT",
	"stop":       "STP",
	"stop_limit": "STP LMT",
}

func orderTypeFromWire(wire string) string {
	for k, v := range orderTypesToWire {
		if v == wire {
			return k
		}
	}
	return strings.ToLower(wire)
}

func orderStatusFromWire(status string) models.OrderStatus {
	switch strings.ToLower(status) {
	case "working", "queued":
		return models.OrderStatusWorking
	case "filled":
		return models.OrderStatusFilled
	case "cancelled", "canceled":
		return models.OrderStatusCancelled
	case "failed", "rejected":
		return models.OrderStatusRejected
	default:
		return models.OrderStatusPending
	}
}

var timeInForceToWire = map[string]string{
	"day": "DAY",
	"gtc": "GTC",
	"ioc": "IOC",
}

// validateOrder fails fast locally on an incomplete order rather than
// round-tripping it to the provider. WeBull additionally requires the opaque
// ticker id on every order payload.
func (c *Client) validateOrder(req provider.OrderRequest) error {
	if err := c.validate.Struct(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			f := verrs[0]
			return provider.NewError(provider.KindMissingField, "order field %q failed %q validation", f.Field(), f.Tag())
		}
		return provider.NewError(provider.KindMissingField, "order validation: %v", err)
	}
	if req.TickerID == "" {
		return provider.NewError(provider.KindMissingField, "order field \"TickerID\" is required")
	}
	return nil
}

func (c *Client) orderParams(req provider.OrderRequest) map[string]interface{} {
	extended := "false"
	if req.ExtendedHours {
		extended = "true"
	}
	params := map[string]interface{}{
		"tickerId":                  req.TickerID,
		"action":                    strings.ToUpper(string(req.Side)),
		"orderType":                 orderTypesToWire[req.Type],
		"timeInForce":               timeInForceToWire[req.TimeInForce],
		"quantity":                  req.Quantity,
		"outsideRegularTradingHour": extended,
		"serialId":                  uuid.NewString(),
	}
	if req.LimitPrice > 0 {
		params["lmtPrice"] = req.LimitPrice
	}
	if req.StopPrice > 0 {
		params["auxPrice"] = req.StopPrice
	}
	return params
}

// PlaceOrder submits a stock order. Preconditions: authenticated session,
// trade-token elevation, resolved sub-account, and a locally valid payload.
func (c *Client) PlaceOrder(ctx context.Context, req provider.OrderRequest) (models.Order, error) {
	if err := c.validateOrder(req); err != nil {
		return models.Order{}, err
	}
	if err := c.requireTrade(); err != nil {
		return models.Order{}, err
	}
	if err := c.requireAccount(ctx); err != nil {
		return models.Order{}, err
	}

	endpoint := fmt.Sprintf(endpointPlaceOrder, c.session.SecAccountID)
	res, err := c.svc.Execute(ctx, http.MethodPost, endpoint, c.orderParams(req))
	if err != nil {
		return models.Order{}, err
	}

	var body struct {
		OrderID int64  `json:"orderId"`
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
	}
	if err := res.Decode(&body); err != nil {
		return models.Order{}, err
	}
	if body.OrderID == 0 {
		return models.Order{}, &provider.Error{
			Kind:    provider.KindOrderFailed,
			Message: rejectionMessage(body.Msg, "order rejected"),
			Raw:     res.Body,
		}
	}

	c.log.WithFields(logger.Fields{
		"order_id": body.OrderID,
		"symbol":   req.Symbol,
		"side":     req.Side,
	}).Info("order placed")

	return models.Order{
		ID:          strconv.FormatInt(body.OrderID, 10),
		Symbol:      req.Symbol,
		Side:        req.Side,
		Type:        req.Type,
		Quantity:    req.Quantity,
		Price:       req.LimitPrice,
		Status:      models.OrderStatusWorking,
		TimeInForce: req.TimeInForce,
	}, nil
}

// ModifyOrder replaces the working order's parameters, symmetric to
// placement: same auth and token preconditions, same local validation.
func (c *Client) ModifyOrder(ctx context.Context, orderID string, req provider.OrderRequest) (models.Order, error) {
	if orderID == "" {
		return models.Order{}, provider.NewError(provider.KindMissingField, "order id is required")
	}
	if err := c.validateOrder(req); err != nil {
		return models.Order{}, err
	}
	if err := c.requireTrade(); err != nil {
		return models.Order{}, err
	}
	if err := c.requireAccount(ctx); err != nil {
		return models.Order{}, err
	}

	endpoint := fmt.Sprintf(endpointModifyOrder, c.session.SecAccountID, orderID)
	res, err := c.svc.Execute(ctx, http.MethodPost, endpoint, c.orderParams(req))
	if err != nil {
		return models.Order{}, err
	}

	var body struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
	}
	if err := res.Decode(&body); err != nil {
		return models.Order{}, err
	}
	if !body.Success {
		return models.Order{}, &provider.Error{
			Kind:    provider.KindModifyFailed,
			Message: rejectionMessage(body.Msg, "modify rejected"),
			Raw:     res.Body,
		}
	}

	return models.Order{
		ID:          orderID,
		Symbol:      req.Symbol,
		Side:        req.Side,
		Type:        req.Type,
		Quantity:    req.Quantity,
		Price:       req.LimitPrice,
		Status:      models.OrderStatusWorking,
		TimeInForce: req.TimeInForce,
	}, nil
}

// CancelOrder cancels a working order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return provider.NewError(provider.KindMissingField, "order id is required")
	}
	if err := c.requireTrade(); err != nil {
		return err
	}
	if err := c.requireAccount(ctx); err != nil {
		return err
	}

	endpoint := fmt.Sprintf(endpointCancelOrder, c.session.SecAccountID, orderID, uuid.NewString())
	res, err := c.svc.Execute(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}

	var body struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
	}
	if err := res.Decode(&body); err != nil {
		return err
	}
	if !body.Success {
		return &provider.Error{
			Kind:    provider.KindCancelFailed,
			Message: rejectionMessage(body.Msg, "cancel rejected"),
			Raw:     res.Body,
		}
	}
	return nil
}

func rejectionMessage(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
