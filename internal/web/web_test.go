package web

import (
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minimall/storefront/core"
	"github.com/minimall/storefront/pkg/api"
	"github.com/minimall/storefront/pkg/session"
)

// backend is a scripted stand-in for the storefront API. Routes are keyed
// by "METHOD /path"; anything unscripted answers 404.
type backend struct {
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
}

func newBackend() *backend {
	b := &backend{routes: map[string]http.HandlerFunc{}, hits: map[string]int{}}
	b.on("GET /api/cart/count", reply(200, `{"count":0}`))
	b.on("GET /api/products/featured", reply(200, `{"products":[]}`))
	b.on("GET /api/categories", reply(200, `{"categories":[]}`))
	return b
}

func (b *backend) on(route string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[route] = h
}

func (b *backend) count(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	b.mu.Lock()
	b.hits[key]++
	h := b.routes[key]
	b.mu.Unlock()
	if h == nil {
		h = reply(404, `{"detail":"Not found"}`)
	}
	h(w, r)
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// browser drives the app through its handler, carrying the session cookie
// and never following redirects.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func (b *browser) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.DefaultCookieName {
			b.cookie = c
		}
	}
	return rec
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, target, nil)
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return b.do(http.MethodPost, target, form)
}

// flashes renders the home page and returns its text, which carries any
// pending toasts.
func (b *browser) flashes() string {
	b.t.Helper()
	rec := b.get("/")
	require.Equal(b.t, http.StatusOK, rec.Code)
	return text(rec)
}

func text(rec *httptest.ResponseRecorder) string {
	return html.UnescapeString(rec.Body.String())
}

type harness struct {
	api     *backend
	browser *browser
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	be := newBackend()
	srv := httptest.NewServer(be)
	t.Cleanup(srv.Close)

	mgr := session.NewManager(core.NewMemoryStore(0), session.Options{})
	client, err := api.New(srv.URL,
		api.WithCredentials(mgr),
		api.WithUnauthenticatedHook(mgr.Unauthenticated),
		api.WithTimeout(5*time.Second),
	)
	require.NoError(t, err)

	app, err := New(Config{
		API:      client,
		Sessions: mgr,
		Now:      func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	return &harness{api: be, browser: &browser{t: t, handler: app.Routes()}}
}

// signIn goes through the sign-in form against a backend that accepts it.
func (h *harness) signIn() {
	h.browser.t.Helper()
	h.api.on("POST /api/auth/signin", reply(200,
		`{"success":true,"token":"tok-1","user":{"id":3,"full_name":"Ana Cruz","email":"ana@example.com"}}`))
	rec := h.browser.post("/signin", url.Values{"email": {"ana@example.com"}, "password": {"secret123"}})
	require.Equal(h.browser.t, http.StatusSeeOther, rec.Code)
	require.Equal(h.browser.t, "/", rec.Header().Get("Location"))
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

func TestSignIn(t *testing.T) {
	h := newHarness(t)
	var sent map[string]string
	h.api.on("POST /api/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&sent)
		reply(200, `{"success":true,"token":"tok-1","user":{"id":3,"full_name":"Ana Cruz"}}`)(w, r)
	})

	h.browser.get("/signin")
	before := h.browser.cookie.Value

	rec := h.browser.post("/signin", url.Values{
		"email":    {"ana@example.com"},
		"password": {"secret123"},
		"next":     {"/orders"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/orders", rec.Header().Get("Location"))
	assert.Equal(t, "ana@example.com", sent["email"])
	assert.NotEqual(t, before, h.browser.cookie.Value, "session id is rotated on sign-in")

	h.api.on("GET /api/cart/count", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		reply(200, `{"count":2}`)(w, r)
	})
	page := h.browser.flashes()
	assert.Contains(t, page, "Welcome back, Ana Cruz!")
	assert.Contains(t, page, "Sign out")
}

func TestSignIn_WrongPassword(t *testing.T) {
	h := newHarness(t)
	h.api.on("POST /api/auth/signin", reply(401, `{"detail":"Invalid email or password"}`))

	rec := h.browser.post("/signin", url.Values{"email": {"ana@example.com"}, "password": {"nope-nope"}})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	loc := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, "/signin?"), loc)
	assert.Contains(t, loc, "email=ana%40example.com")

	page := text(h.browser.get(loc))
	assert.Contains(t, page, "Invalid email or password")
	assert.NotContains(t, page, "Your session has expired")
}

func TestSignIn_Validation(t *testing.T) {
	h := newHarness(t)

	h.browser.post("/signin", url.Values{"email": {"not-an-email"}})

	page := h.browser.flashes()
	assert.Contains(t, page, "Email must be a valid email address")
	assert.Contains(t, page, "Password is required")
	assert.Zero(t, h.api.count("POST /api/auth/signin"))
}

func TestSignUp_VerifiesCodeThenSignsIn(t *testing.T) {
	h := newHarness(t)
	h.api.on("POST /api/auth/send-otp", reply(200, `{"success":true}`))
	var verify api.VerifyOTPRequest
	h.api.on("POST /api/auth/verify-otp", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&verify)
		reply(200, `{"success":true,"token":"tok-new","user":{"id":9,"full_name":"Ben Reyes"}}`)(w, r)
	})

	rec := h.browser.post("/signup", url.Values{
		"full_name":        {"Ben Reyes"},
		"email":            {"ben@example.com"},
		"password":         {"longenough"},
		"confirm_password": {"longenough"},
	})
	require.Equal(t, "/signup", rec.Header().Get("Location"))
	assert.Contains(t, text(h.browser.get("/signup")), "Verify your email")

	rec = h.browser.post("/signup/verify", url.Values{"code": {"123456"}})

	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, "ben@example.com", verify.Email)
	assert.Equal(t, "123456", verify.OTP)
	require.NotNil(t, verify.SignupData)
	assert.Equal(t, "Ben Reyes", verify.SignupData.FullName)
	assert.Zero(t, h.api.count("POST /api/auth/signup"))
	assert.Contains(t, h.browser.flashes(), "Welcome to MiniMall, Ben Reyes!")
}

func TestSignUp_MismatchedPasswords(t *testing.T) {
	h := newHarness(t)

	h.browser.post("/signup", url.Values{
		"full_name":        {"Ben Reyes"},
		"email":            {"ben@example.com"},
		"password":         {"longenough"},
		"confirm_password": {"different"},
	})

	assert.Contains(t, h.browser.flashes(), "Passwords do not match")
	assert.Zero(t, h.api.count("POST /api/auth/send-otp"))
}

func TestRequireAuth_RedirectsAnonymousVisitors(t *testing.T) {
	h := newHarness(t)

	rec := h.browser.get("/orders?tab=completed")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signin?next=%2Forders%3Ftab%3Dcompleted", rec.Header().Get("Location"))
	assert.Zero(t, h.api.count("GET /api/orders"))
}

func TestExpiredToken_RedirectsOnce(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	expired := reply(401, `{"detail":"Token expired"}`)
	h.api.on("GET /api/products/featured", expired)
	h.api.on("GET /api/categories", expired)
	h.api.on("GET /api/cart/count", expired)

	rec := h.browser.get("/")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signin?next=%2F", rec.Header().Get("Location"))

	page := text(h.browser.get("/signin?next=%2F"))
	assert.Equal(t, 1, strings.Count(page, "Your session has expired. Please sign in again."))

	// The token is gone: protected pages now bounce before calling the backend.
	rec = h.browser.get("/cart")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Zero(t, h.api.count("GET /api/cart/"))
}

func TestExpiredToken_DuringAction(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.api.on("DELETE /api/cart/clear", reply(401, `{"detail":"Token expired"}`))

	rec := h.browser.post("/cart/clear", nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signin", rec.Header().Get("Location"))
}

func TestCheckout_ShowsComputedTotal(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.api.on("GET /api/cart/", reply(200, `{"cart":{"items":[
		{"cart_item_id":1,"product_id":7,"product_name":"Clay Mug","quantity":2,"price":500,"subtotal":1000}
	],"total":1000,"item_count":2}}`))
	var delivery string
	h.api.on("GET /api/checkout/calculate-total", func(w http.ResponseWriter, r *http.Request) {
		delivery = r.URL.Query().Get("delivery_option")
		// The backend total is a centavo off; the page shows the sum of its lines.
		reply(200, `{"subtotal":1000,"tax":120,"shipping_fee":50,"marketplace_fee":30,"total":1199.99,"item_count":2}`)(w, r)
	})

	rec := h.browser.get("/checkout?delivery=express")

	require.Equal(t, http.StatusOK, rec.Code)
	page := text(rec)
	assert.Equal(t, "express", delivery)
	assert.Contains(t, page, "₱1200.00")
	assert.Contains(t, page, "Clay Mug")
	assert.Contains(t, page, `value="Ana Cruz"`)
}

func TestCheckout_EmptyCartGoesBackToCart(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.api.on("GET /api/cart/", reply(200, `{"cart":{"items":[],"total":0,"item_count":0}}`))

	rec := h.browser.get("/checkout")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/cart", rec.Header().Get("Location"))
	assert.Zero(t, h.api.count("GET /api/checkout/calculate-total"))
}

func TestPlaceOrder(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	var req api.CheckoutRequest
	h.api.on("POST /api/checkout/create", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		reply(200, `{"success":true,"order_id":41,"order_number":"MM-0041","total":1200}`)(w, r)
	})

	rec := h.browser.post("/checkout", url.Values{
		"delivery_option": {"standard"},
		"payment_method":  {"gcash"},
		"full_name":       {"Ana Cruz"},
		"phone":           {"09171234567"},
		"address_line1":   {"12 Mabini St"},
		"city":            {"Quezon City"},
		"state":           {"Metro Manila"},
		"postal_code":     {"1100"},
	})

	require.Equal(t, "/checkout/success", rec.Header().Get("Location"))
	assert.Equal(t, "gcash", req.PaymentMethod)
	assert.Equal(t, "1100", req.ShippingInfo.PostalCode)
	assert.Nil(t, req.CustomerNotes)

	page := text(h.browser.get("/checkout/success"))
	assert.Contains(t, page, "MM-0041")
	assert.Contains(t, page, "₱1200.00")

	// The confirmation is shown once.
	assert.NotContains(t, text(h.browser.get("/checkout/success")), "MM-0041")
}

func TestPlaceOrder_InvalidFormKeepsChoices(t *testing.T) {
	h := newHarness(t)
	h.signIn()

	rec := h.browser.post("/checkout", url.Values{
		"delivery_option": {"express"},
		"payment_method":  {"gcash"},
		"postal_code":     {"abc"},
	})

	assert.Equal(t, "/checkout?delivery=express&payment=gcash", rec.Header().Get("Location"))
	assert.Zero(t, h.api.count("POST /api/checkout/create"))
	page := h.browser.flashes()
	assert.Contains(t, page, "Full name is required")
	assert.Contains(t, page, "Postal code must contain digits only")
}

func TestHome_SectionErrorKeepsRestOfPage(t *testing.T) {
	h := newHarness(t)
	h.api.on("GET /api/products/featured", reply(500, `{"detail":"Featured list is down"}`))
	h.api.on("GET /api/categories", reply(200, `{"categories":[{"id":1,"name":"Home Goods","slug":"home-goods"}]}`))

	rec := h.browser.get("/")

	require.Equal(t, http.StatusOK, rec.Code)
	page := text(rec)
	assert.Contains(t, page, "Home Goods")
	assert.Contains(t, page, "Featured list is down")
	assert.Contains(t, page, `<a href="/">Try again</a>`)
}

func TestOrder_NotFoundRedirectsToHistory(t *testing.T) {
	h := newHarness(t)
	h.signIn()

	rec := h.browser.get("/orders/99")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/orders", rec.Header().Get("Location"))
	assert.Equal(t, 1, h.api.count("GET /api/orders/99"))
}

func TestOrders_Tabs(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.api.on("GET /api/orders", reply(200, `[
		{"id":1,"order_number":"MM-1","status":"pending","total_amount":100,"items":[{"product_name":"Clay Mug","quantity":1}]},
		{"id":2,"order_number":"MM-2","status":"delivered","total_amount":250,"items":[{"product_name":"Rattan Basket","quantity":1}]}
	]`))

	pending := text(h.browser.get("/orders"))
	assert.Contains(t, pending, "MM-1")
	assert.NotContains(t, pending, "MM-2")

	completed := text(h.browser.get("/orders?tab=completed"))
	assert.Contains(t, completed, "MM-2")
	assert.NotContains(t, completed, "MM-1")

	searched := text(h.browser.get("/orders?tab=completed&q=basket"))
	assert.Contains(t, searched, "MM-2")
}

func TestOrdersPage_BackendDown(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.api.on("GET /api/orders", reply(503, `{"detail":"Maintenance"}`))

	rec := h.browser.get("/orders")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, text(rec), "Maintenance")
	assert.Contains(t, text(rec), "Try again")
}

func TestBulkAdd_ReportsPartialSuccess(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.api.on("POST /api/cart/add", func(w http.ResponseWriter, r *http.Request) {
		var req api.AddToCartRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ProductID == "2" {
			reply(400, `{"detail":"Out of stock"}`)(w, r)
			return
		}
		reply(200, `{"success":true}`)(w, r)
	})

	rec := h.browser.post("/cart/bulk-add", url.Values{
		"product_id": {"1", "2", "3"},
		"quantity":   {"1", "2", "1"},
	})

	assert.Equal(t, "/cart", rec.Header().Get("Location"))
	assert.Equal(t, 3, h.api.count("POST /api/cart/add"))
	assert.Contains(t, h.browser.flashes(), "Added 2 of 3 items. 1 could not be added.")
}

func TestBulkAdd_RejectsQuantity(t *testing.T) {
	h := newHarness(t)
	h.signIn()

	h.browser.post("/cart/bulk-add", url.Values{
		"product_id": {"1", "2"},
		"quantity":   {"1", "abc"},
	})

	assert.Zero(t, h.api.count("POST /api/cart/add"))
	assert.Contains(t, h.browser.flashes(), "Quantity must be between 1 and 99.")
}

func TestAddToCart_RejectsQuantity(t *testing.T) {
	h := newHarness(t)
	h.signIn()

	h.browser.post("/cart/add", url.Values{"product_id": {"1"}, "quantity": {"500"}})

	assert.Zero(t, h.api.count("POST /api/cart/add"))
	assert.Contains(t, h.browser.flashes(), "Quantity must be between 1 and 99.")
}

func TestSellerGate(t *testing.T) {
	tests := []struct {
		name        string
		application http.HandlerFunc
		wantFlash   string
	}{
		{
			name:        "never applied",
			application: reply(404, `{"detail":"No application"}`),
			wantFlash:   "You need to apply as a seller first.",
		},
		{
			name:        "pending",
			application: reply(200, `{"application":{"status":"pending"}}`),
			wantFlash:   "Your seller application is still under review.",
		},
		{
			name:        "rejected",
			application: reply(200, `{"application":{"status":"rejected"}}`),
			wantFlash:   "Your seller application was rejected.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.signIn()
			h.api.on("GET /api/seller/application/status", tt.application)

			rec := h.browser.get("/seller/orders")

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/profile", rec.Header().Get("Location"))
			assert.Zero(t, h.api.count("GET /api/seller/orders"))
			assert.Contains(t, h.browser.flashes(), tt.wantFlash)
		})
	}
}

func TestSellerGate_ApprovedCreatesStore(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	h.api.on("GET /api/seller/profile", reply(403, `{"detail":"Not a seller"}`))
	h.api.on("GET /api/seller/application/status", reply(200, `{"status":"approved"}`))
	h.api.on("POST /api/seller/profile/create", reply(200, `{"profile":{"id":5,"store_name":"Cruz Crafts"}}`))
	h.api.on("GET /api/profile/statistics", reply(200, `{"statistics":{"total_products":4}}`))
	h.api.on("GET /api/seller/orders/stats/summary", reply(200, `{"stats":{"total_orders":3,"pending_count":1,"total_revenue":900}}`))
	h.api.on("GET /api/profile/transactions", reply(200, `{"transactions":[]}`))

	rec := h.browser.get("/seller")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/seller", rec.Header().Get("Location"))

	rec = h.browser.get("/seller")
	require.Equal(t, http.StatusOK, rec.Code)
	page := text(rec)
	assert.Contains(t, page, "Cruz Crafts")
	assert.Contains(t, page, "Your seller profile is ready.")
	assert.Contains(t, page, "₱900.00")

	assert.Equal(t, 1, h.api.count("GET /api/seller/profile"), "store is cached in the session")
	assert.Equal(t, 1, h.api.count("POST /api/seller/profile/create"))
}

func TestUpdateOrderStatus(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	var update api.StatusUpdate
	h.api.on("PATCH /api/seller/orders/5/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&update)
		reply(200, `{"message":"Order marked as shipped"}`)(w, r)
	})

	rec := h.browser.post("/seller/orders/5/status", url.Values{
		"status":          {"shipped"},
		"tracking_number": {"LBC-123"},
		"notes":           {"ignored unless cancelled"},
	})

	assert.Equal(t, "/seller/orders", rec.Header().Get("Location"))
	assert.Equal(t, api.StatusUpdate{Status: "shipped", TrackingNumber: "LBC-123"}, update)
	assert.Contains(t, h.browser.flashes(), "Order marked as shipped")
}

func TestUpdateOrderStatus_ShippedNeedsTracking(t *testing.T) {
	h := newHarness(t)
	h.signIn()

	h.browser.post("/seller/orders/5/status", url.Values{"status": {"shipped"}})

	assert.Zero(t, h.api.count("PATCH /api/seller/orders/5/status"))
	assert.Contains(t, h.browser.flashes(), "Tracking number is required for this status")
}

func TestUnknownPath(t *testing.T) {
	h := newHarness(t)

	rec := h.browser.get("/no/such/page")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"/orders?tab=completed", "/orders?tab=completed"},
		{"", "/"},
		{"https://evil.example/", "/"},
		{"//evil.example/", "/"},
		{"/\\evil.example/", "/"},
		{"orders", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeNext(tt.next, "/"), "next %q", tt.next)
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Postal code", label("postal_code"))
	assert.Equal(t, "Compare at price", label("CompareAtPrice"))
	assert.Equal(t, "Email", label("email"))
	assert.Equal(t, "Field", label(""))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hand-woven-rattan-basket", slugify("Hand-woven  Rattan Basket!"))
	assert.Equal(t, "mug-2", slugify("  Mug #2 "))
}

func TestFilterProducts(t *testing.T) {
	products := []api.Product{
		{ID: "1", IsActive: true, QuantityInStock: 3},
		{ID: "2", IsActive: true, QuantityInStock: 0},
		{ID: "3", IsActive: false, QuantityInStock: 5},
	}
	ids := func(ps []api.Product) []api.ID {
		out := make([]api.ID, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	assert.Equal(t, []api.ID{"1", "2", "3"}, ids(filterProducts(products, productFilterAll)))
	assert.Equal(t, []api.ID{"1"}, ids(filterProducts(products, productFilterActive)))
	assert.Equal(t, []api.ID{"3"}, ids(filterProducts(products, productFilterDraft)))
	assert.Equal(t, []api.ID{"2"}, ids(filterProducts(products, productFilterOutOfStock)))
}
