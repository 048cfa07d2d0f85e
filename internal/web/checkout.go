package web

import (
	"context"
	"net/url"

	"github.com/pkg/errors"

	"github.com/minimall/storefront/pkg/api"
	"github.com/minimall/storefront/pkg/money"
	"github.com/minimall/storefront/pkg/session"
)

type checkoutView struct {
	Cart     *api.Cart
	Summary  section[*money.Summary]
	Delivery string
	Shipping api.ShippingInfo
	Payment  string

	DeliveryOptions []string
	PaymentMethods  []string
}

func (a *App) checkoutPage(p *page) error {
	cart, err := a.cartItems(p.ctx)
	if err != nil {
		return err
	}
	if len(cart.Items) == 0 {
		p.flash(session.FlashInfo, "Your cart is empty.")
		p.redirect("/cart")
		return nil
	}

	delivery := p.query("delivery")
	if delivery != api.DeliveryExpress {
		delivery = api.DeliveryStandard
	}

	v := checkoutView{
		Cart:            cart,
		Delivery:        delivery,
		Payment:         p.query("payment"),
		DeliveryOptions: deliveryOptions,
		PaymentMethods:  paymentMethods,
	}
	v.Summary = load(p, "checkout total", func(ctx context.Context) (*money.Summary, error) {
		return a.api.CalculateTotal(ctx, delivery)
	})
	if s := v.Summary.Data; s != nil && !s.Consistent() {
		a.logger.WarnWithContext(p.ctx, "Checkout total does not match its components", map[string]interface{}{
			"backend_total":  s.Total.Float(),
			"computed_total": s.ComputedTotal(),
			"delivery":       delivery,
		})
	}
	if u := p.user(); u != nil {
		v.Shipping.FullName = u.FullName
		v.Shipping.Phone = u.Phone
	}
	return p.render("checkout", "Checkout", v)
}

func (a *App) placeOrder(p *page) (string, error) {
	form := checkoutForm{
		Delivery: p.form("delivery_option"),
		Payment:  p.form("payment_method"),
		Notes:    p.form("customer_notes"),
		Shipping: shippingForm{
			FullName:     p.form("full_name"),
			Phone:        p.form("phone"),
			AddressLine1: p.form("address_line1"),
			AddressLine2: p.form("address_line2"),
			City:         p.form("city"),
			State:        p.form("state"),
			PostalCode:   p.form("postal_code"),
		},
	}
	retry := "/checkout?" + url.Values{"delivery": {form.Delivery}, "payment": {form.Payment}}.Encode()
	if err := a.check(form); err != nil {
		return retry, err
	}

	res, err := a.api.Checkout(p.ctx, api.CheckoutRequest{
		PaymentMethod:  form.Payment,
		DeliveryOption: form.Delivery,
		CustomerNotes:  optional(form.Notes),
		ShippingInfo: api.ShippingInfo{
			FullName:     form.Shipping.FullName,
			Phone:        form.Shipping.Phone,
			AddressLine1: form.Shipping.AddressLine1,
			AddressLine2: form.Shipping.AddressLine2,
			City:         form.Shipping.City,
			State:        form.Shipping.State,
			PostalCode:   form.Shipping.PostalCode,
		},
	})
	if err != nil {
		return retry, errors.Wrap(err, "place order")
	}

	a.logger.InfoWithContext(p.ctx, "Order placed", map[string]interface{}{
		"order_id":     res.OrderID.String(),
		"order_number": res.OrderNumber,
		"total":        res.Total.Float(),
		"payment":      form.Payment,
		"delivery":     form.Delivery,
	})
	err = p.sess.SetLastOrder(p.ctx, session.LastOrder{
		OrderID:     res.OrderID.String(),
		OrderNumber: res.OrderNumber,
		Total:       res.Total.Float(),
	})
	if err != nil {
		// The order exists; only the confirmation details are lost.
		a.logger.WarnWithContext(p.ctx, "Failed to remember last order", map[string]interface{}{
			"error": err.Error(),
		})
	}
	p.flash(session.FlashSuccess, "Order placed successfully!")
	return "/checkout/success", nil
}

type successView struct {
	Order *session.LastOrder
}

func (a *App) successPage(p *page) error {
	order, err := p.sess.TakeLastOrder(p.ctx)
	if err != nil {
		return errors.Wrap(err, "read last order")
	}
	return p.render("success", "Order confirmed", successView{Order: order})
}
