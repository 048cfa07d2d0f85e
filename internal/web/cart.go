package web

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/minimall/storefront/pkg/api"
	"github.com/minimall/storefront/pkg/session"
)

const maxQuantity = 99

type cartView struct {
	Cart section[*api.Cart]
}

func (a *App) cartPage(p *page) error {
	return p.render("cart", "Your cart", cartView{Cart: load(p, "cart", a.api.Cart)})
}

func quantity(s string) (int, error) {
	n := parseInt(s, 1)
	if n < 1 || n > maxQuantity {
		return 0, notice(fmt.Sprintf("Quantity must be between 1 and %d.", maxQuantity))
	}
	return n, nil
}

func (a *App) addToCart(p *page) (string, error) {
	back := p.back("/cart")
	productID := p.form("product_id")
	if productID == "" {
		return back, notice("Choose a product to add.")
	}
	qty, err := quantity(p.form("quantity"))
	if err != nil {
		return back, err
	}
	req := api.AddToCartRequest{ProductID: api.ID(productID), Quantity: qty}
	if v := p.form("variant_id"); v != "" {
		id := api.ID(v)
		req.VariantID = &id
	}

	if err := a.api.AddToCart(p.ctx, req); err != nil {
		return back, errors.Wrap(err, "add to cart")
	}
	p.flash(session.FlashSuccess, "Added to your cart.")
	if p.form("buy_now") != "" {
		return "/checkout", nil
	}
	return back, nil
}

// bulkAdd adds several products at once ("buy again" on an order). The
// form repeats product_id, with a matching quantity for each. Quantities
// follow the same rule as addToCart; one bad quantity rejects the batch.
func (a *App) bulkAdd(p *page) (string, error) {
	back := p.back("/cart")
	ids := p.r.PostForm["product_id"]
	qtys := p.r.PostForm["quantity"]

	items := make([]api.AddToCartRequest, 0, len(ids))
	for i, id := range ids {
		if id == "" {
			continue
		}
		raw := ""
		if i < len(qtys) {
			raw = qtys[i]
		}
		qty, err := quantity(raw)
		if err != nil {
			return back, err
		}
		items = append(items, api.AddToCartRequest{ProductID: api.ID(id), Quantity: qty})
	}
	if len(items) == 0 {
		return back, notice("Nothing to add.")
	}

	res, err := a.api.BulkAdd(p.ctx, items)
	if err != nil {
		return back, errors.Wrap(err, "bulk add to cart")
	}
	switch {
	case res.Failed == 0:
		p.flash(session.FlashSuccess, fmt.Sprintf("Added %d %s to your cart.", res.Succeeded, plural(res.Succeeded, "item", "items")))
		return "/cart", nil
	case res.Succeeded == 0:
		return back, notice("None of the items could be added to your cart.")
	default:
		p.flash(session.FlashWarning, fmt.Sprintf("Added %d of %d items. %d could not be added.", res.Succeeded, res.Total(), res.Failed))
		return "/cart", nil
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func (a *App) updateCartItem(p *page) (string, error) {
	id := p.param("id")
	n := parseInt(p.form("quantity"), 1)
	if n == 0 {
		return a.removeCartItem(p)
	}
	if n < 1 || n > maxQuantity {
		return "/cart", notice(fmt.Sprintf("Quantity must be between 1 and %d.", maxQuantity))
	}
	if err := a.api.UpdateCartItem(p.ctx, id, n); err != nil {
		return "/cart", errors.Wrap(err, "update cart item")
	}
	p.flash(session.FlashSuccess, "Cart updated.")
	return "/cart", nil
}

func (a *App) removeCartItem(p *page) (string, error) {
	if err := a.api.RemoveCartItem(p.ctx, p.param("id")); err != nil {
		return "/cart", errors.Wrap(err, "remove cart item")
	}
	p.flash(session.FlashSuccess, "Item removed from your cart.")
	return "/cart", nil
}

func (a *App) clearCart(p *page) (string, error) {
	if err := a.api.ClearCart(p.ctx); err != nil {
		return "/cart", errors.Wrap(err, "clear cart")
	}
	p.flash(session.FlashSuccess, "Your cart is empty.")
	return "/cart", nil
}

// cartItems loads the cart for pages that need it as their main data.
func (a *App) cartItems(ctx context.Context) (*api.Cart, error) {
	cart, err := a.api.Cart(ctx)
	return cart, errors.Wrap(err, "load cart")
}
