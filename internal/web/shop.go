package web

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/minimall/storefront/pkg/api"
	"github.com/minimall/storefront/pkg/session"
)

const (
	featuredLimit = 8
	productsLimit = 12
	relatedLimit  = 4
)

type homeView struct {
	Featured   section[[]api.Product]
	Categories section[[]api.Category]
}

func (a *App) homePage(p *page) error {
	v := homeView{
		Featured: load(p, "featured products", func(ctx context.Context) ([]api.Product, error) {
			return a.api.FeaturedProducts(ctx, featuredLimit)
		}),
		Categories: load(p, "categories", a.api.Categories),
	}
	return p.render("home", "MiniMall", v)
}

type productsView struct {
	Products   section[*api.ProductList]
	Categories section[[]api.Category]
	Category   string
	Search     string
	Page       int
	Pages      int
}

// PageURL links to another page of the same listing.
func (v productsView) PageURL(n int) string {
	q := url.Values{}
	if v.Category != "" {
		q.Set("category", v.Category)
	}
	if v.Search != "" {
		q.Set("q", v.Search)
	}
	if n > 1 {
		q.Set("page", strconv.Itoa(n))
	}
	if len(q) == 0 {
		return "/products"
	}
	return "/products?" + q.Encode()
}

func (a *App) productsPage(p *page) error {
	v := productsView{
		Category: p.query("category"),
		Search:   p.query("q"),
		Page:     parseInt(p.query("page"), 1),
	}
	if v.Page < 1 {
		v.Page = 1
	}

	v.Products = load(p, "products", func(ctx context.Context) (*api.ProductList, error) {
		return a.api.ListProducts(ctx, api.ProductQuery{
			Limit:      productsLimit,
			Offset:     (v.Page - 1) * productsLimit,
			CategoryID: v.Category,
			Search:     v.Search,
		})
	})
	v.Categories = load(p, "categories", a.api.Categories)

	if list := v.Products.Data; list != nil {
		v.Pages = (list.Total + productsLimit - 1) / productsLimit
		if v.Pages == 0 && len(list.Products) > 0 {
			v.Pages = 1
		}
	}

	title := "Products"
	if v.Search != "" {
		title = "Results for \"" + v.Search + "\""
	}
	return p.render("products", title, v)
}

type productView struct {
	Product *api.Product
	Related section[[]api.Product]
}

func (a *App) productPage(p *page) error {
	slug := p.param("slug")
	product, err := a.api.ProductBySlug(p.ctx, slug)
	if errors.Is(err, api.ErrNotFound) {
		if _, convErr := strconv.Atoi(slug); convErr == nil {
			product, err = a.api.ProductByID(p.ctx, slug)
		}
	}
	if errors.Is(err, api.ErrNotFound) {
		p.flash(session.FlashWarning, "That product is no longer available.")
		p.redirect("/products")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "load product")
	}

	v := productView{Product: product}
	if product.CategoryID != "" {
		v.Related = load(p, "related products", func(ctx context.Context) ([]api.Product, error) {
			list, err := a.api.ListProducts(ctx, api.ProductQuery{Limit: relatedLimit + 1, CategoryID: product.CategoryID.String()})
			if err != nil {
				return nil, err
			}
			related := make([]api.Product, 0, relatedLimit)
			for _, other := range list.Products {
				if other.ID != product.ID && len(related) < relatedLimit {
					related = append(related, other)
				}
			}
			return related, nil
		})
	}
	return p.render("product", product.Name, v)
}

func (a *App) notFoundPage(p *page) error {
	p.renderStatus(http.StatusNotFound, "error", "Page not found", errorView{
		Message: "We couldn't find that page.",
	})
	return nil
}
