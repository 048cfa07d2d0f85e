package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/minimall/storefront/pkg/ledger"
	"github.com/minimall/storefront/pkg/money"
)

// Delivery options offered at checkout.
const (
	DeliveryStandard = "standard"
	DeliveryExpress  = "express"
)

// Orders returns the shopper's orders. The endpoint answers with a bare
// array; a wrapped {"orders": [...]} is accepted as well.
func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/orders", "/api/orders", nil, &raw); err != nil {
		return nil, err
	}
	var orders []Order
	if err := unwrap(raw, "orders", &orders); err != nil {
		return nil, decodeError(http.MethodGet, "/api/orders", err)
	}
	return orders, nil
}

// Order returns one of the shopper's orders.
func (c *Client) Order(ctx context.Context, id string) (*Order, error) {
	path := "/api/orders/" + escape(id)
	var raw json.RawMessage
	if err := c.get(ctx, "/api/orders/{id}", path, nil, &raw); err != nil {
		return nil, err
	}
	var order Order
	if err := unwrap(raw, "order", &order); err != nil {
		return nil, decodeError(http.MethodGet, path, err)
	}
	return &order, nil
}

// CalculateTotal prices the cart for a delivery option.
func (c *Client) CalculateTotal(ctx context.Context, deliveryOption string) (*money.Summary, error) {
	if deliveryOption == "" {
		deliveryOption = DeliveryStandard
	}
	var sum money.Summary
	q := url.Values{"delivery_option": {deliveryOption}}
	if err := c.get(ctx, "/api/checkout/calculate-total", "/api/checkout/calculate-total", q, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// Checkout places the order.
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if req.DeliveryOption == "" {
		req.DeliveryOption = DeliveryStandard
	}
	var res CheckoutResult
	if err := c.send(ctx, http.MethodPost, "/api/checkout/create", "/api/checkout/create", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// LedgerOrders converts backend orders for the customer and payout ledgers.
func LedgerOrders(orders []Order) []ledger.Order {
	out := make([]ledger.Order, len(orders))
	for i, o := range orders {
		out[i] = ledger.Order{
			ID:             o.ID.String(),
			Number:         o.OrderNumber,
			CustomerID:     o.UserID.String(),
			CustomerName:   o.CustomerName,
			CustomerEmail:  o.CustomerEmail,
			Amount:         o.TotalAmount.Float(),
			CreatedAt:      o.CreatedAt,
			Status:         o.Status,
			SellerPayout:   o.SellerPayout.Float(),
			SellerSubtotal: o.SellerSubtotal.Float(),
		}
	}
	return out
}

// DecodeOrders reads an order list as the orders endpoints return it: a
// bare array or an object holding "orders".
func DecodeOrders(data []byte) ([]Order, error) {
	var orders []Order
	if err := unwrap(data, "orders", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// unwrap decodes raw into out, descending into raw[key] when raw is an
// object holding that key.
func unwrap(raw json.RawMessage, key string, out interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err == nil {
			if inner, ok := obj[key]; ok {
				raw = inner
			}
		}
	}
	return json.Unmarshal(raw, out)
}

func decodeError(method, path string, err error) *Error {
	return &Error{Method: method, Path: path, Message: msgUnexpected, Err: ErrRequestFailed, Cause: err}
}
