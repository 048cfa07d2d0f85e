package web

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/minimall/storefront/pkg/api"
	"github.com/minimall/storefront/pkg/ledger"
	"github.com/minimall/storefront/pkg/session"
)

const (
	sellerOrdersLimit   = 10
	customerOrdersLimit = 1000
	payoutOrdersLimit   = 50
	revenueDays         = 365
	recentTransactions  = 5
	sellerProductsLimit = 10

	msgNoSellerAccess = "You do not have seller access"
)

// seller resolves the store of the signed-in user for the seller pages.
// A user without a store is sent to the profile page, or gets the store
// created when the application was approved in the meantime. A nil
// profile means the response has been written.
func (a *App) seller(p *page) (*api.SellerProfile, error) {
	var cached api.SellerProfile
	if ok, _ := p.sess.GetJSON(p.ctx, session.KeySellerData, &cached); ok && cached.StoreName != "" {
		return &cached, nil
	}

	prof, err := a.api.SellerProfile(p.ctx)
	if err == nil {
		a.cacheSeller(p, prof)
		return prof, nil
	}
	if !errors.Is(err, api.ErrNotFound) && !errors.Is(err, api.ErrForbidden) {
		return nil, errors.Wrap(err, "load seller profile")
	}

	app, err := a.api.ApplicationStatus(p.ctx)
	switch {
	case errors.Is(err, api.ErrNotFound):
		p.flash(session.FlashInfo, "You need to apply as a seller first.")
		p.redirect("/profile")
		return nil, nil
	case err != nil:
		return nil, errors.Wrap(err, "load seller application")
	}

	switch app.Status {
	case api.ApplicationApproved:
		prof, err := a.api.CreateSellerProfile(p.ctx)
		if err != nil {
			return nil, errors.Wrap(err, "create seller profile")
		}
		a.cacheSeller(p, prof)
		a.logger.InfoWithContext(p.ctx, "Seller profile created", map[string]interface{}{
			"store": prof.StoreName,
		})
		p.flash(session.FlashSuccess, "Your seller profile is ready.")
		p.redirect(p.r.URL.RequestURI())
	case api.ApplicationPending:
		p.flash(session.FlashInfo, "Your seller application is still under review. Please check back later.")
		p.redirect("/profile")
	case api.ApplicationRejected:
		p.flash(session.FlashWarning, "Your seller application was rejected. You can apply again from your profile.")
		p.redirect("/profile")
	default:
		p.flash(session.FlashInfo, "You need to apply as a seller first.")
		p.redirect("/profile")
	}
	return nil, nil
}

func (a *App) cacheSeller(p *page, prof *api.SellerProfile) {
	if err := p.sess.SetJSON(p.ctx, session.KeySellerData, prof); err != nil {
		a.logger.WarnWithContext(p.ctx, "Failed to cache seller profile", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// sellerDenied drops the cached store after the backend refused seller
// access, so the next seller page runs the full check again.
func (a *App) sellerDenied(p *page, err error) error {
	if !errors.Is(err, api.ErrForbidden) {
		return err
	}
	if derr := p.sess.Delete(p.ctx, session.KeySellerData); derr != nil {
		a.logger.WarnWithContext(p.ctx, "Failed to drop seller profile", map[string]interface{}{
			"error": derr.Error(),
		})
	}
	return notice(msgNoSellerAccess)
}

type sellerDashboardView struct {
	Store        *api.SellerProfile
	Stats        section[*api.Statistics]
	Orders       section[*api.OrderStats]
	Transactions section[[]api.Transaction]
}

func (a *App) sellerDashboardPage(p *page) error {
	store, err := a.seller(p)
	if store == nil {
		return err
	}
	v := sellerDashboardView{Store: store}
	v.Stats = load(p, "statistics", a.api.Statistics)
	v.Orders = load(p, "order stats", func(ctx context.Context) (*api.OrderStats, error) {
		stats, err := a.api.OrderStats(ctx)
		return stats, a.sellerDenied(p, err)
	})
	v.Transactions = load(p, "recent transactions", func(ctx context.Context) ([]api.Transaction, error) {
		return a.api.Transactions(ctx, recentTransactions)
	})
	return p.render("seller_dashboard", "Seller dashboard", v)
}

type sellerOrdersView struct {
	Store    *api.SellerProfile
	Orders   section[*api.SellerOrderList]
	Selected section[*api.Order]
	Query    api.SellerOrderQuery
	Open     string

	Statuses   []string
	DateRanges []string
}

// PageURL keeps the filters while moving to page n.
func (v sellerOrdersView) PageURL(n int) string {
	q := url.Values{"page": {strconv.Itoa(n)}}
	if v.Query.Status != "" && v.Query.Status != "all" {
		q.Set("status", v.Query.Status)
	}
	if v.Query.DateRange != "" && v.Query.DateRange != "all" {
		q.Set("date_range", v.Query.DateRange)
	}
	if v.Query.Search != "" {
		q.Set("search", v.Query.Search)
	}
	return "/seller/orders?" + q.Encode()
}

// OrderURL opens order id in the detail panel of the current page.
func (v sellerOrdersView) OrderURL(id api.ID) string {
	return v.PageURL(v.Query.Page) + "&order=" + url.QueryEscape(id.String())
}

// Pending is the pending-orders badge count.
func (v sellerOrdersView) Pending() int {
	if l := v.Orders.Data; l != nil && l.Stats != nil {
		return l.Stats.PendingCount
	}
	return 0
}

func oneOf(s string, allowed []string, def string) string {
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	return def
}

func (a *App) sellerOrdersPage(p *page) error {
	store, err := a.seller(p)
	if store == nil {
		return err
	}

	pg := parseInt(p.query("page"), 1)
	if pg < 1 {
		pg = 1
	}
	v := sellerOrdersView{
		Store: store,
		Query: api.SellerOrderQuery{
			Page:      pg,
			Limit:     sellerOrdersLimit,
			Status:    oneOf(p.query("status"), api.OrderStatuses, "all"),
			DateRange: oneOf(p.query("date_range"), api.DateRanges, "all"),
			Search:    p.query("search"),
		},
		Open:       p.query("order"),
		Statuses:   api.OrderStatuses,
		DateRanges: api.DateRanges,
	}
	v.Orders = load(p, "seller orders", func(ctx context.Context) (*api.SellerOrderList, error) {
		list, err := a.api.SellerOrders(ctx, v.Query)
		return list, a.sellerDenied(p, err)
	})
	if v.Open != "" {
		v.Selected = load(p, "seller order", func(ctx context.Context) (*api.Order, error) {
			return a.api.SellerOrder(ctx, v.Open)
		})
	}
	return p.render("seller_orders", "Orders", v)
}

func (a *App) updateOrderStatus(p *page) (string, error) {
	back := p.back("/seller/orders")
	form := statusForm{
		Status:   p.form("status"),
		Tracking: p.form("tracking_number"),
		Notes:    p.form("notes"),
	}
	if err := a.check(form); err != nil {
		return back, err
	}

	msg, err := a.api.UpdateOrderStatus(p.ctx, p.param("id"), api.StatusUpdate{
		Status:         form.Status,
		TrackingNumber: form.Tracking,
		Notes:          form.Notes,
	})
	if err != nil {
		return back, errors.Wrap(a.sellerDenied(p, err), "update order status")
	}
	a.logger.InfoWithContext(p.ctx, "Order status updated", map[string]interface{}{
		"order_id": p.param("id"),
		"status":   form.Status,
	})
	p.flash(session.FlashSuccess, msg)
	return back, nil
}

type customerLedger struct {
	Customers []ledger.Customer
	Total     int
	Revenue   float64
}

type sellerCustomersView struct {
	Store     *api.SellerProfile
	Customers section[customerLedger]
	Search    string
}

func (a *App) sellerCustomersPage(p *page) error {
	store, err := a.seller(p)
	if store == nil {
		return err
	}

	v := sellerCustomersView{Store: store, Search: p.query("q")}
	v.Customers = load(p, "customer ledger", func(ctx context.Context) (customerLedger, error) {
		list, err := a.api.SellerOrders(ctx, api.SellerOrderQuery{Limit: customerOrdersLimit})
		if err != nil {
			return customerLedger{}, a.sellerDenied(p, err)
		}
		all := ledger.Aggregate(api.LedgerOrders(list.Orders))
		l := customerLedger{Customers: ledger.FilterCustomers(all, v.Search), Total: len(all)}
		for _, c := range all {
			l.Revenue += c.TotalSpent
		}
		return l, nil
	})
	return p.render("seller_customers", "Customers", v)
}

type payouts struct {
	Summary      ledger.PayoutSummary
	Transactions []ledger.Transaction
}

type sellerPayoutsView struct {
	Store   *api.SellerProfile
	Payouts section[payouts]
	FeeRate float64
}

func (a *App) sellerPayoutsPage(p *page) error {
	store, err := a.seller(p)
	if store == nil {
		return err
	}

	v := sellerPayoutsView{Store: store, FeeRate: ledger.MarketplaceFeeRate}
	v.Payouts = load(p, "payouts", func(ctx context.Context) (payouts, error) {
		revenue, err := a.api.Revenue(ctx, revenueDays)
		if err != nil {
			return payouts{}, a.sellerDenied(p, err)
		}
		stats, err := a.api.OrderStats(ctx)
		if err != nil {
			return payouts{}, a.sellerDenied(p, err)
		}
		list, err := a.api.SellerOrders(ctx, api.SellerOrderQuery{Page: 1, Limit: payoutOrdersLimit, Status: "all"})
		if err != nil {
			return payouts{}, a.sellerDenied(p, err)
		}

		series := make([]ledger.RevenuePoint, len(revenue))
		for i, r := range revenue {
			series[i] = ledger.RevenuePoint{Date: r.Date, Revenue: r.Revenue.Float()}
		}
		orders := api.LedgerOrders(list.Orders)
		return payouts{
			Summary: ledger.Summarize(series, stats.TotalRevenue.Float(), stats.TotalOrders,
				stats.AvgOrderValue.Float(), orders, a.now()),
			Transactions: ledger.Transactions(orders),
		}, nil
	})
	return p.render("seller_payouts", "Payouts", v)
}

// Product list filters.
const (
	productFilterAll        = "all"
	productFilterActive     = "active"
	productFilterDraft      = "draft"
	productFilterOutOfStock = "out_of_stock"
)

var productFilters = []string{productFilterAll, productFilterActive, productFilterDraft, productFilterOutOfStock}

func filterProducts(products []api.Product, filter string) []api.Product {
	if filter == productFilterAll || filter == "" {
		return products
	}
	out := make([]api.Product, 0, len(products))
	for _, pr := range products {
		keep := false
		switch filter {
		case productFilterActive:
			keep = pr.IsActive && pr.QuantityInStock > 0
		case productFilterDraft:
			keep = !pr.IsActive
		case productFilterOutOfStock:
			keep = pr.QuantityInStock <= 0
		}
		if keep {
			out = append(out, pr)
		}
	}
	return out
}

type sellerProductsView struct {
	Store      *api.SellerProfile
	Products   section[[]api.Product]
	Categories section[[]api.Category]
	Editing    *api.Product
	Filter     string
	Search     string
	Page       int
	HasNext    bool
	Filters    []string
}

// Draft is what the product form starts from: the product being edited,
// or an empty active product.
func (v sellerProductsView) Draft() api.Product {
	if v.Editing != nil {
		return *v.Editing
	}
	return api.Product{IsActive: true}
}

// PageURL keeps the filters while moving to page n.
func (v sellerProductsView) PageURL(n int) string {
	q := url.Values{"page": {strconv.Itoa(n)}}
	if v.Filter != productFilterAll {
		q.Set("filter", v.Filter)
	}
	if v.Search != "" {
		q.Set("search", v.Search)
	}
	return "/seller/products?" + q.Encode()
}

func (a *App) sellerProductsPage(p *page) error {
	store, err := a.seller(p)
	if store == nil {
		return err
	}

	v := sellerProductsView{
		Store:   store,
		Filter:  oneOf(p.query("filter"), productFilters, productFilterAll),
		Search:  p.query("search"),
		Page:    parseInt(p.query("page"), 1),
		Filters: productFilters,
	}
	if v.Page < 1 {
		v.Page = 1
	}
	v.Products = load(p, "seller products", func(ctx context.Context) ([]api.Product, error) {
		list, err := a.api.SellerProducts(ctx, api.ProductQuery{
			Limit:  sellerProductsLimit,
			Offset: (v.Page - 1) * sellerProductsLimit,
			Search: v.Search,
		})
		if err != nil {
			return nil, a.sellerDenied(p, err)
		}
		v.HasNext = list.Total > v.Page*sellerProductsLimit
		return filterProducts(list.Products, v.Filter), nil
	})
	v.Categories = load(p, "categories", a.api.Categories)

	if id := p.query("edit"); id != "" {
		prod, err := a.api.ProductByID(p.ctx, id)
		switch {
		case err == nil:
			v.Editing = prod
		case errors.Is(err, api.ErrNotFound):
			p.flash(session.FlashWarning, "That product no longer exists.")
			p.redirect("/seller/products")
			return nil
		default:
			return errors.Wrap(err, "load product for editing")
		}
	}
	return p.render("seller_products", "Products", v)
}

func (a *App) readProductForm(p *page) productForm {
	return productForm{
		Name:             p.form("name"),
		CategoryID:       p.form("category_id"),
		SKU:              p.form("sku"),
		ShortDescription: p.form("short_description"),
		Description:      p.form("description"),
		Price:            parseFloat(p.form("price")),
		CompareAtPrice:   parseFloat(p.form("compare_at_price")),
		Stock:            parseInt(p.form("quantity_in_stock"), 0),
		Weight:           parseFloat(p.form("weight")),
		ImageURL:         p.form("image_url"),
		IsFeatured:       p.form("is_featured") != "",
		IsActive:         p.form("is_active") != "",
	}
}

func (a *App) createProduct(p *page) (string, error) {
	form := a.readProductForm(p)
	if err := a.check(form); err != nil {
		return "/seller/products", err
	}
	prod, err := a.api.CreateProduct(p.ctx, form.input())
	if err != nil {
		return "/seller/products", errors.Wrap(a.sellerDenied(p, err), "create product")
	}
	a.logger.InfoWithContext(p.ctx, "Product created", map[string]interface{}{
		"product_id": prod.ID.String(),
	})
	p.flash(session.FlashSuccess, "Product \""+form.Name+"\" created.")
	return "/seller/products", nil
}

func (a *App) updateProduct(p *page) (string, error) {
	id := p.param("id")
	editURL := "/seller/products?edit=" + url.QueryEscape(id)
	form := a.readProductForm(p)
	if err := a.check(form); err != nil {
		return editURL, err
	}
	if err := a.api.UpdateProduct(p.ctx, id, form.input()); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return "/seller/products", notice("That product no longer exists.")
		}
		return editURL, errors.Wrap(a.sellerDenied(p, err), "update product")
	}
	p.flash(session.FlashSuccess, "Product \""+form.Name+"\" updated.")
	return "/seller/products", nil
}

func (a *App) deleteProduct(p *page) (string, error) {
	if err := a.api.DeleteProduct(p.ctx, p.param("id")); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return "/seller/products", notice("That product no longer exists.")
		}
		return "/seller/products", errors.Wrap(a.sellerDenied(p, err), "delete product")
	}
	p.flash(session.FlashSuccess, "Product deleted.")
	return "/seller/products", nil
}
