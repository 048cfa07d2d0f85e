package api

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"
)

// AddToCartRequest is the body of POST /api/cart/add.
type AddToCartRequest struct {
	ProductID ID  `json:"product_id"`
	Quantity  int `json:"quantity"`
	VariantID *ID `json:"variant_id"`
}

// Cart returns the shopper's cart.
func (c *Client) Cart(ctx context.Context) (*Cart, error) {
	var res struct {
		Cart *Cart `json:"cart"`
	}
	if err := c.get(ctx, "/api/cart/", "/api/cart/", nil, &res); err != nil {
		return nil, err
	}
	if res.Cart == nil {
		return &Cart{}, nil
	}
	return res.Cart, nil
}

// CartCount returns the number of items in the cart, for the header badge.
func (c *Client) CartCount(ctx context.Context) (int, error) {
	var res struct {
		Count int `json:"count"`
	}
	if err := c.get(ctx, "/api/cart/count", "/api/cart/count", nil, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// AddToCart adds quantity units of a product. Quantities below one are
// sent as one.
func (c *Client) AddToCart(ctx context.Context, req AddToCartRequest) error {
	if req.Quantity < 1 {
		req.Quantity = 1
	}
	return c.send(ctx, http.MethodPost, "/api/cart/add", "/api/cart/add", req, nil)
}

// UpdateCartItem sets the quantity of a cart line.
func (c *Client) UpdateCartItem(ctx context.Context, cartItemID string, quantity int) error {
	return c.send(ctx, http.MethodPut, "/api/cart/items/{id}", "/api/cart/items/"+escape(cartItemID),
		map[string]int{"quantity": quantity}, nil)
}

// RemoveCartItem deletes a cart line.
func (c *Client) RemoveCartItem(ctx context.Context, cartItemID string) error {
	return c.send(ctx, http.MethodDelete, "/api/cart/items/{id}", "/api/cart/items/"+escape(cartItemID), nil, nil)
}

// ClearCart empties the cart.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.send(ctx, http.MethodDelete, "/api/cart/clear", "/api/cart/clear", nil, nil)
}

// BulkResult tallies a BulkAdd.
type BulkResult struct {
	Succeeded int
	Failed    int
	// Errors holds the failure of each failed item, keyed by its index in
	// the request.
	Errors map[int]error
}

// Total is the number of items that were attempted.
func (r BulkResult) Total() int { return r.Succeeded + r.Failed }

// BulkAdd adds each item with its own request and tallies the results. By
// default the requests run one after another; WithBulkConcurrency allows a
// bounded number in flight. Individual failures are counted, not returned.
// An authentication failure stops the batch: items not yet started are
// skipped, and ErrUnauthenticated is returned with the partial tally.
func (c *Client) BulkAdd(ctx context.Context, items []AddToCartRequest) (BulkResult, error) {
	res := BulkResult{Errors: make(map[int]error)}
	if len(items) == 0 {
		return res, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.bulkLimit)

	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			err := c.AddToCart(gctx, item)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				res.Succeeded++
				return nil
			}
			res.Failed++
			res.Errors[i] = err
			if errors.Is(err, ErrUnauthenticated) {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	if c.recorder != nil {
		c.recorder.RecordBulkAdd(ctx, res.Succeeded, res.Failed)
	}
	c.logger.InfoWithContext(ctx, "Bulk add to cart finished", map[string]interface{}{
		"requested": len(items),
		"succeeded": res.Succeeded,
		"failed":    res.Failed,
	})
	return res, err
}
