package api

import (
	"context"
	"net/url"
	"strconv"
)

// ProductQuery filters GET /api/products. Zero values are omitted.
type ProductQuery struct {
	Limit      int
	Offset     int
	CategoryID string
	Featured   *bool
	Search     string
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.CategoryID != "" {
		v.Set("category_id", q.CategoryID)
	}
	if q.Featured != nil {
		v.Set("is_featured", strconv.FormatBool(*q.Featured))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

// ProductList is a page of products.
type ProductList struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

// ListProducts returns products matching q.
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (*ProductList, error) {
	var res ProductList
	if err := c.get(ctx, "/api/products", "/api/products", q.values(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// FeaturedProducts returns up to limit featured products.
func (c *Client) FeaturedProducts(ctx context.Context, limit int) ([]Product, error) {
	return c.productList(ctx, "/api/products/featured", "/api/products/featured", limitQuery(limit))
}

// SearchProducts runs a full-text product search.
func (c *Client) SearchProducts(ctx context.Context, term string, limit int) ([]Product, error) {
	q := limitQuery(limit)
	q.Set("q", term)
	return c.productList(ctx, "/api/products/search", "/api/products/search", q)
}

// ProductsByTag returns products carrying tag.
func (c *Client) ProductsByTag(ctx context.Context, tag string, limit int) ([]Product, error) {
	return c.productList(ctx, "/api/products/tag/{tag}", "/api/products/tag/"+escape(tag), limitQuery(limit))
}

// ProductByID fetches one product by numeric id.
func (c *Client) ProductByID(ctx context.Context, id string) (*Product, error) {
	return c.product(ctx, "/api/products/id/{id}", "/api/products/id/"+escape(id))
}

// ProductBySlug fetches one product by slug.
func (c *Client) ProductBySlug(ctx context.Context, slug string) (*Product, error) {
	return c.product(ctx, "/api/products/{slug}", "/api/products/"+escape(slug))
}

// Categories lists all categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var res struct {
		Categories []Category `json:"categories"`
	}
	if err := c.get(ctx, "/api/categories", "/api/categories", nil, &res); err != nil {
		return nil, err
	}
	return res.Categories, nil
}

// Category fetches one category by slug.
func (c *Client) Category(ctx context.Context, slug string) (*Category, error) {
	var res struct {
		Category *Category `json:"category"`
	}
	path := "/api/categories/" + escape(slug)
	if err := c.get(ctx, "/api/categories/{slug}", path, nil, &res); err != nil {
		return nil, err
	}
	if res.Category == nil {
		return nil, &Error{Method: "GET", Path: path, Message: msgNotFound, Err: ErrNotFound}
	}
	return res.Category, nil
}

func (c *Client) productList(ctx context.Context, route, path string, q url.Values) ([]Product, error) {
	var res ProductList
	if err := c.get(ctx, route, path, q, &res); err != nil {
		return nil, err
	}
	return res.Products, nil
}

func (c *Client) product(ctx context.Context, route, path string) (*Product, error) {
	var res struct {
		Product *Product `json:"product"`
	}
	if err := c.get(ctx, route, path, nil, &res); err != nil {
		return nil, err
	}
	if res.Product == nil {
		return nil, &Error{Method: "GET", Path: path, Message: msgNotFound, Err: ErrNotFound}
	}
	return res.Product, nil
}

func limitQuery(limit int) url.Values {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return v
}
