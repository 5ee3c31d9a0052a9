package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidOrder is returned when an order request fails construction checks.
var ErrInvalidOrder = errors.New("invalid order request")

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType is the execution style of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// TimeInForce values accepted in OrderRequest.Params["timeInForce"].
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

// Well-known OrderRequest.Params keys understood by every connector.
const (
	ParamTimeInForce   = "timeInForce"
	ParamReduceOnly    = "reduceOnly"
	ParamClientOrderID = "clientOrderId"
	ParamPositionSide  = "positionSide"
)

// ParseSide converts a user supplied side into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, s)
}

// ParseOrderType converts a user supplied order type into an OrderType.
func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(strings.ToLower(strings.TrimSpace(s))) {
	case OrderTypeMarket:
		return OrderTypeMarket, nil
	case OrderTypeLimit:
		return OrderTypeLimit, nil
	}
	return "", fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, s)
}

// OrderRequest describes an order to submit to a venue. Build it with
// NewOrderRequest and pass it by value; Params is a private copy.
type OrderRequest struct {
	Symbol string            `json:"symbol"`
	Side   Side              `json:"side"`
	Type   OrderType         `json:"type"`
	Amount float64           `json:"amount"`
	Price  *float64          `json:"price,omitempty"`
	Params map[string]string `json:"params,omitempty"`
}

// NewOrderRequest validates its inputs and returns an OrderRequest.
// Price is required for limit orders and dropped for market orders.
func NewOrderRequest(symbol string, side Side, typ OrderType, amount float64, price *float64, params map[string]string) (OrderRequest, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return OrderRequest{}, fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	}
	if side != SideBuy && side != SideSell {
		return OrderRequest{}, fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, side)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return OrderRequest{}, fmt.Errorf("%w: amount must be greater than 0", ErrInvalidOrder)
	}

	req := OrderRequest{Symbol: symbol, Side: side, Type: typ, Amount: amount}
	switch typ {
	case OrderTypeLimit:
		if price == nil || math.IsNaN(*price) || math.IsInf(*price, 0) || *price <= 0 {
			return OrderRequest{}, fmt.Errorf("%w: limit order requires a positive price", ErrInvalidOrder)
		}
		p := *price
		req.Price = &p
	case OrderTypeMarket:
	default:
		return OrderRequest{}, fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, typ)
	}

	if len(params) > 0 {
		req.Params = make(map[string]string, len(params))
		for k, v := range params {
			req.Params[k] = v
		}
	}
	return req, nil
}

// Param returns an extra venue parameter.
func (r OrderRequest) Param(key string) (string, bool) {
	v, ok := r.Params[key]
	return v, ok
}

// OrderResult is the normalized outcome of a submission or lookup.
// Status is the venue's own label, lower-cased.
type OrderResult struct {
	Venue         string    `json:"venue"`
	OrderID       string    `json:"order_id"`
	ClientOrderID string    `json:"client_order_id,omitempty"`
	Symbol        string    `json:"symbol"`
	Status        string    `json:"status"`
	Filled        float64   `json:"filled"`
	Remaining     float64   `json:"remaining"`
	Price         *float64  `json:"price"`
	Timestamp     time.Time `json:"timestamp"`
}

// PartiallyOpen reports whether some of the order is still unfilled.
func (r OrderResult) PartiallyOpen() bool {
	return r.Remaining > 0
}

// MarginMode selects isolated or cross margin on derivatives venues.
type MarginMode string

const (
	MarginIsolated MarginMode = "isolated"
	MarginCross    MarginMode = "cross"
)

// ParseMarginMode converts a user supplied margin mode.
func ParseMarginMode(s string) (MarginMode, error) {
	switch MarginMode(strings.ToLower(strings.TrimSpace(s))) {
	case MarginIsolated:
		return MarginIsolated, nil
	case MarginCross, "crossed":
		return MarginCross, nil
	}
	return "", fmt.Errorf("unknown margin mode %q", s)
}
