// Package web renders the storefront pages.
//
// Every route is served by a page controller built for the request and
// dropped with the response. GET handlers load from the backend and render
// a template; POST handlers run one mutation, leave a flash toast in the
// session and redirect back (post/redirect/get), so the page that follows
// always shows fresh backend state.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/minimall/storefront/core"
	"github.com/minimall/storefront/pkg/api"
	"github.com/minimall/storefront/pkg/session"
)

// Config holds the App's dependencies.
type Config struct {
	API      *api.Client
	Sessions *session.Manager
	Logger   core.Logger
	// ServiceName names the server spans.
	ServiceName string
	// Now is the clock used for token expiry and payout dates.
	Now func() time.Time
}

// App is the storefront web front end.
type App struct {
	api      *api.Client
	sessions *session.Manager
	logger   core.Logger
	service  string
	now      func() time.Time

	views    *views
	validate *validator.Validate
}

// New builds the App and parses its templates.
func New(cfg Config) (*App, error) {
	if cfg.API == nil || cfg.Sessions == nil {
		return nil, core.ErrInvalidConfiguration
	}
	v, err := parseViews()
	if err != nil {
		return nil, err
	}
	a := &App{
		api:      cfg.API,
		sessions: cfg.Sessions,
		logger:   cfg.Logger,
		service:  cfg.ServiceName,
		now:      cfg.Now,
		views:    v,
		validate: newValidator(),
	}
	if a.logger == nil {
		a.logger = &core.NoOpLogger{}
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.service == "" {
		a.service = "storefront"
	}
	return a, nil
}

// Routes returns the page router wrapped in the session middleware.
func (a *App) Routes() http.Handler {
	r := mux.NewRouter()
	r.StrictSlash(true)
	r.Use(otelmux.Middleware(a.service))

	get := func(path, name string, fn pageFunc) {
		r.Handle(path, a.page(name, fn)).Methods(http.MethodGet, http.MethodHead)
	}
	post := func(path, name string, fn actionFunc) {
		r.Handle(path, a.action(name, fn)).Methods(http.MethodPost)
	}

	get("/signin", "signin", a.signInPage)
	post("/signin", "signin", a.signIn)
	get("/signup", "signup", a.signUpPage)
	post("/signup", "signup", a.signUp)
	post("/signup/verify", "signup", a.verifySignUp)
	post("/signup/resend", "signup", a.resendCode)
	post("/signup/cancel", "signup", a.cancelSignUp)
	get("/signout", "signout", a.signOutPage)
	post("/signout", "signout", a.signOut)

	get("/", "home", a.homePage)
	get("/products", "products", a.productsPage)
	get("/products/{slug}", "product", a.productPage)

	auth := r.NewRoute().Subrouter()
	auth.Use(a.requireAuth)
	authGet := func(path, name string, fn pageFunc) {
		auth.Handle(path, a.page(name, fn)).Methods(http.MethodGet, http.MethodHead)
	}
	authPost := func(path, name string, fn actionFunc) {
		auth.Handle(path, a.action(name, fn)).Methods(http.MethodPost)
	}

	authGet("/cart", "cart", a.cartPage)
	authPost("/cart/add", "cart", a.addToCart)
	authPost("/cart/bulk-add", "cart", a.bulkAdd)
	authPost("/cart/items/{id}/update", "cart", a.updateCartItem)
	authPost("/cart/items/{id}/remove", "cart", a.removeCartItem)
	authPost("/cart/clear", "cart", a.clearCart)

	authGet("/checkout", "checkout", a.checkoutPage)
	authPost("/checkout", "checkout", a.placeOrder)
	authGet("/checkout/success", "checkout-success", a.successPage)

	authGet("/orders", "orders", a.ordersPage)
	authGet("/orders/{id}", "order", a.orderPage)

	authGet("/profile", "profile", a.profilePage)
	authPost("/profile/seller-application", "profile", a.applySeller)

	authGet("/seller", "seller-dashboard", a.sellerDashboardPage)
	authGet("/seller/orders", "seller-orders", a.sellerOrdersPage)
	authPost("/seller/orders/{id}/status", "seller-orders", a.updateOrderStatus)
	authGet("/seller/customers", "seller-customers", a.sellerCustomersPage)
	authGet("/seller/payouts", "seller-payouts", a.sellerPayoutsPage)
	authGet("/seller/products", "seller-products", a.sellerProductsPage)
	authPost("/seller/products", "seller-products", a.createProduct)
	authPost("/seller/products/{id}/update", "seller-products", a.updateProduct)
	authPost("/seller/products/{id}/delete", "seller-products", a.deleteProduct)

	r.NotFoundHandler = a.page("not-found", a.notFoundPage)

	return a.sessions.Middleware(r)
}
