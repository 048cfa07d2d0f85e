package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// Dashboard returns the profile page data in one call.
func (c *Client) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	if err := c.get(ctx, "/api/profile/dashboard", "/api/profile/dashboard", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Statistics returns the profile statistics block.
func (c *Client) Statistics(ctx context.Context) (*Statistics, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/profile/statistics", "/api/profile/statistics", nil, &raw); err != nil {
		return nil, err
	}
	var s Statistics
	if err := unwrap(raw, "statistics", &s); err != nil {
		return nil, decodeError(http.MethodGet, "/api/profile/statistics", err)
	}
	return &s, nil
}

// Transactions returns the most recent limit transactions.
func (c *Client) Transactions(ctx context.Context, limit int) ([]Transaction, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var res struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := c.get(ctx, "/api/profile/transactions", "/api/profile/transactions", q, &res); err != nil {
		return nil, err
	}
	return res.Transactions, nil
}
