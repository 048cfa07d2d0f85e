package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Seller order statuses, in lifecycle order.
var OrderStatuses = []string{"pending", "processing", "shipped", "delivered", "cancelled"}

// Date-range filters accepted by the seller orders endpoint.
var DateRanges = []string{"all", "today", "this_week", "this_month", "last_week"}

// DefaultCancelNote is sent when a seller cancels without giving a reason.
const DefaultCancelNote = "Cancelled by seller"

// ErrApplicationExists is returned by ApplySeller when the user already has
// a pending or approved application.
var ErrApplicationExists = fmt.Errorf("%w: seller application already submitted", ErrRequestFailed)

// ValidOrderStatus reports whether s is one of OrderStatuses.
func ValidOrderStatus(s string) bool {
	for _, st := range OrderStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// SellerOrderQuery filters the seller order list. Empty fields are omitted;
// "all" for Status or DateRange is passed through.
type SellerOrderQuery struct {
	Page      int
	Limit     int
	Status    string
	DateRange string
	Search    string
}

func (q SellerOrderQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.DateRange != "" {
		v.Set("date_range", q.DateRange)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

// StatusUpdate is the body of PATCH /api/seller/orders/{id}/status.
type StatusUpdate struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// normalize keeps tracking numbers only for shipped and notes only for
// cancelled, defaulting the cancel note.
func (u StatusUpdate) normalize() StatusUpdate {
	u.Status = strings.ToLower(strings.TrimSpace(u.Status))
	u.TrackingNumber = strings.TrimSpace(u.TrackingNumber)
	u.Notes = strings.TrimSpace(u.Notes)
	if u.Status != "shipped" {
		u.TrackingNumber = ""
	}
	if u.Status != "cancelled" {
		u.Notes = ""
	} else if u.Notes == "" {
		u.Notes = DefaultCancelNote
	}
	return u
}

// SellerOrders returns one page of the seller's orders.
func (c *Client) SellerOrders(ctx context.Context, q SellerOrderQuery) (*SellerOrderList, error) {
	var res SellerOrderList
	if err := c.get(ctx, "/api/seller/orders", "/api/seller/orders", q.values(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SellerOrder returns one order of the seller.
func (c *Client) SellerOrder(ctx context.Context, id string) (*Order, error) {
	path := "/api/seller/orders/" + escape(id)
	var raw json.RawMessage
	if err := c.get(ctx, "/api/seller/orders/{id}", path, nil, &raw); err != nil {
		return nil, err
	}
	var order Order
	if err := unwrap(raw, "order", &order); err != nil {
		return nil, decodeError(http.MethodGet, path, err)
	}
	return &order, nil
}

// UpdateOrderStatus moves an order to a new status and returns the
// backend's confirmation message.
func (c *Client) UpdateOrderStatus(ctx context.Context, id string, update StatusUpdate) (string, error) {
	update = update.normalize()
	path := "/api/seller/orders/" + escape(id) + "/status"
	if !ValidOrderStatus(update.Status) {
		return "", &Error{
			Method:  http.MethodPatch,
			Path:    path,
			Message: fmt.Sprintf("Unknown order status %q", update.Status),
			Err:     ErrValidation,
		}
	}

	var res struct {
		Message string `json:"message"`
	}
	err := c.send(ctx, http.MethodPatch, "/api/seller/orders/{id}/status", path, update, &res)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusInternalServerError {
			apiErr.Message = "Server is temporarily unavailable. Please try again later."
		}
		return "", err
	}
	if res.Message == "" {
		res.Message = fmt.Sprintf("Order status updated to %q", update.Status)
	}
	return res.Message, nil
}

// OrderStats returns the seller's order summary.
func (c *Client) OrderStats(ctx context.Context) (*OrderStats, error) {
	var res struct {
		Stats *OrderStats `json:"stats"`
	}
	if err := c.get(ctx, "/api/seller/orders/stats/summary", "/api/seller/orders/stats/summary", nil, &res); err != nil {
		return nil, err
	}
	if res.Stats == nil {
		return &OrderStats{}, nil
	}
	return res.Stats, nil
}

// Revenue returns the daily revenue series for the last days days.
func (c *Client) Revenue(ctx context.Context, days int) ([]RevenuePoint, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	var res struct {
		Revenue []RevenuePoint `json:"revenue"`
	}
	if err := c.get(ctx, "/api/seller/revenue", "/api/seller/revenue", q, &res); err != nil {
		return nil, err
	}
	return res.Revenue, nil
}

// SellerProducts lists the seller's own products.
func (c *Client) SellerProducts(ctx context.Context, q ProductQuery) (*ProductList, error) {
	var res ProductList
	if err := c.get(ctx, "/api/seller/products", "/api/seller/products", q.values(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateProduct adds a product to the seller's store.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	var raw json.RawMessage
	if err := c.send(ctx, http.MethodPost, "/api/seller/products", "/api/seller/products", in, &raw); err != nil {
		return nil, err
	}
	var p Product
	if err := unwrap(raw, "product", &p); err != nil {
		return nil, decodeError(http.MethodPost, "/api/seller/products", err)
	}
	return &p, nil
}

// UpdateProduct replaces a product's editable fields.
func (c *Client) UpdateProduct(ctx context.Context, id string, in ProductInput) error {
	return c.send(ctx, http.MethodPut, "/api/seller/products/{id}", "/api/seller/products/"+escape(id), in, nil)
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/api/seller/products/{id}", "/api/seller/products/"+escape(id), nil, nil)
}

// SellerProfile returns the seller's store profile. A user without one gets
// ErrNotFound (or ErrForbidden, depending on the backend's view of them).
func (c *Client) SellerProfile(ctx context.Context) (*SellerProfile, error) {
	return c.sellerProfile(ctx, http.MethodGet, "/api/seller/profile")
}

// CreateSellerProfile creates the store profile after an approved
// application.
func (c *Client) CreateSellerProfile(ctx context.Context) (*SellerProfile, error) {
	return c.sellerProfile(ctx, http.MethodPost, "/api/seller/profile/create")
}

func (c *Client) sellerProfile(ctx context.Context, method, path string) (*SellerProfile, error) {
	var raw json.RawMessage
	if err := c.do(ctx, call{method: method, route: path, path: path}, &raw); err != nil {
		return nil, err
	}
	var p SellerProfile
	if err := unwrap(raw, "profile", &p); err != nil {
		return nil, decodeError(method, path, err)
	}
	return &p, nil
}

// ApplySeller submits a seller application. A 400 complaining about an
// existing application becomes ErrApplicationExists.
func (c *Client) ApplySeller(ctx context.Context, req SellerApplicationRequest) error {
	err := c.send(ctx, http.MethodPost, "/api/seller/apply", "/api/seller/apply", req, nil)
	var apiErr *Error
	if err != nil && errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest && mentionsApplication(apiErr.Message) {
		apiErr.Err = ErrApplicationExists
		apiErr.Message = "You already have an active seller application."
	}
	return err
}

func mentionsApplication(msg string) bool {
	msg = strings.ToLower(msg)
	for _, w := range []string{"pending", "already have", "approved", "application"} {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}

// ApplicationStatus returns the user's seller application. Users who never
// applied get ErrNotFound.
func (c *Client) ApplicationStatus(ctx context.Context) (*SellerApplication, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/seller/application/status", "/api/seller/application/status", nil, &raw); err != nil {
		return nil, err
	}
	var app SellerApplication
	if err := unwrap(raw, "application", &app); err != nil {
		return nil, decodeError(http.MethodGet, "/api/seller/application/status", err)
	}
	return &app, nil
}
