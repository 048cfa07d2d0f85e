package web

import (
	"context"

	"github.com/pkg/errors"

	"github.com/minimall/storefront/pkg/api"
	"github.com/minimall/storefront/pkg/ledger"
	"github.com/minimall/storefront/pkg/session"
)

type historyTabs struct {
	Pending   []api.Order
	Completed []api.Order
}

type ordersView struct {
	Orders section[historyTabs]
	Tab    string
	Search string
}

// Shown is the list for the selected tab.
func (v ordersView) Shown() []api.Order {
	if v.Tab == ledger.TabCompleted {
		return v.Orders.Data.Completed
	}
	return v.Orders.Data.Pending
}

func orderStatus(o api.Order) string { return o.Status }

func orderSearchFields(o api.Order) []string {
	return append([]string{o.OrderNumber, o.ID.String(), o.Status}, o.ItemNames()...)
}

func (a *App) ordersPage(p *page) error {
	v := ordersView{Tab: p.query("tab"), Search: p.query("q")}
	if v.Tab != ledger.TabCompleted {
		v.Tab = ledger.TabPending
	}
	v.Orders = load(p, "order history", func(ctx context.Context) (historyTabs, error) {
		orders, err := a.api.Orders(ctx)
		if err != nil {
			return historyTabs{}, err
		}
		orders = ledger.Search(orders, v.Search, orderSearchFields)
		pending, completed := ledger.SplitHistory(orders, orderStatus)
		return historyTabs{Pending: pending, Completed: completed}, nil
	})
	return p.render("orders", "My orders", v)
}

type orderView struct {
	Order *api.Order
}

func (a *App) orderPage(p *page) error {
	order, err := a.api.Order(p.ctx, p.param("id"))
	if errors.Is(err, api.ErrNotFound) {
		p.flash(session.FlashWarning, "We couldn't find that order.")
		p.redirect("/orders")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "load order")
	}
	title := "Order"
	if order.OrderNumber != "" {
		title = "Order " + order.OrderNumber
	}
	return p.render("order", title, orderView{Order: order})
}
