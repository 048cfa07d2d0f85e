package api

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/minimall/storefront/pkg/money"
)

// ID is a backend identifier. The backend sends integers on most endpoints
// and strings on a few; both decode into the same value.
type ID string

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes integer-looking IDs as numbers, which is what the
// backend expects in request bodies.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// envelope carries the success flag most endpoints wrap their payload in.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// User is the signed-in account as cached in the session.
type User struct {
	ID       ID     `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
	IsSeller bool   `json:"is_seller"`
}

// AuthResult is returned by sign-in, sign-up and OTP verification.
type AuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
	User    *User  `json:"user"`
	UserID  ID     `json:"user_id"`
}

// ProductImage is one image of a product.
type ProductImage struct {
	ImageURL  string `json:"image_url"`
	AltText   string `json:"alt_text,omitempty"`
	IsPrimary bool   `json:"is_primary"`
}

// Product is a catalog entry.
type Product struct {
	ID               ID             `json:"id"`
	Name             string         `json:"name"`
	Slug             string         `json:"slug"`
	Price            money.Amount   `json:"price"`
	CompareAtPrice   money.Amount   `json:"compare_at_price"`
	Images           []ProductImage `json:"images"`
	PrimaryImage     string         `json:"primary_image"`
	QuantityInStock  int            `json:"quantity_in_stock"`
	SKU              string         `json:"sku"`
	IsActive         bool           `json:"is_active"`
	IsFeatured       bool           `json:"is_featured"`
	CategoryID       ID             `json:"category_id"`
	CategoryName     string         `json:"category_name"`
	Description      string         `json:"description"`
	ShortDescription string         `json:"short_description"`
}

// Image returns the URL to show for the product: primary_image, else the
// image flagged primary, else the first image.
func (p Product) Image() string {
	if p.PrimaryImage != "" {
		return p.PrimaryImage
	}
	for _, img := range p.Images {
		if img.IsPrimary {
			return img.ImageURL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].ImageURL
	}
	return ""
}

// OnSale reports whether a compare-at price above the price is set.
func (p Product) OnSale() bool {
	return p.CompareAtPrice > p.Price
}

// Category is a catalog category.
type Category struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description,omitempty"`
	ImageURL     string `json:"image_url"`
	ProductCount int    `json:"product_count"`
}

// CartItem is one line of the cart.
type CartItem struct {
	CartItemID   ID           `json:"cart_item_id"`
	ProductID    ID           `json:"product_id"`
	ProductName  string       `json:"product_name"`
	VariantName  string       `json:"variant_name"`
	VariantValue string       `json:"variant_value"`
	Quantity     int          `json:"quantity"`
	Price        money.Amount `json:"price"`
	Subtotal     money.Amount `json:"subtotal"`
	ImageURL     string       `json:"image_url"`
}

// Cart is the shopper's cart.
type Cart struct {
	Items     []CartItem   `json:"items"`
	Total     money.Amount `json:"total"`
	ItemCount int          `json:"item_count"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID    ID           `json:"product_id"`
	ProductName  string       `json:"product_name"`
	ProductImage string       `json:"product_image"`
	SKU          string       `json:"sku"`
	VariantName  string       `json:"variant_name"`
	VariantValue string       `json:"variant_value"`
	Quantity     int          `json:"quantity"`
	Price        money.Amount `json:"price"`
	PriceAtTime  money.Amount `json:"price_at_time"`
	Subtotal     money.Amount `json:"subtotal"`
}

// UnitPrice is price_at_time when the backend recorded it, else price.
func (i OrderItem) UnitPrice() money.Amount {
	if i.PriceAtTime != 0 {
		return i.PriceAtTime
	}
	return i.Price
}

// Order is an order as seen by its customer or its seller.
type Order struct {
	ID                  ID           `json:"id"`
	OrderNumber         string       `json:"order_number"`
	UserID              ID           `json:"user_id"`
	CustomerName        string       `json:"customer_name"`
	CustomerEmail       string       `json:"customer_email"`
	CustomerNotes       string       `json:"customer_notes"`
	TotalAmount         money.Amount `json:"total_amount"`
	Status              string       `json:"status"`
	PaymentMethod       string       `json:"payment_method"`
	PaymentStatus       string       `json:"payment_status"`
	DeliveryOption      string       `json:"delivery_option"`
	TrackingNumber      string       `json:"tracking_number"`
	CreatedAt           string       `json:"created_at"`
	ItemCount           int          `json:"item_count"`
	Items               []OrderItem  `json:"items"`
	ShippingFullName    string       `json:"shipping_full_name"`
	ShippingPhone       string       `json:"shipping_phone"`
	ShippingAddressLine string       `json:"shipping_address_line"`
	ShippingCity        string       `json:"shipping_city"`
	ShippingState       string       `json:"shipping_state"`
	ShippingPostalCode  string       `json:"shipping_postal_code"`
	ShippingCountry     string       `json:"shipping_country"`
	SellerPayout        money.Amount `json:"seller_payout"`
	SellerSubtotal      money.Amount `json:"seller_subtotal"`
	MarketplaceFee      money.Amount `json:"marketplace_fee"`
}

// ItemNames lists the product names of the order's items.
func (o Order) ItemNames() []string {
	names := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		names = append(names, it.ProductName)
	}
	return names
}

// Count returns item_count, falling back to the summed item quantities.
func (o Order) Count() int {
	if o.ItemCount > 0 {
		return o.ItemCount
	}
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Pagination is the paging block of list endpoints.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.CurrentPage > 1 }

// HasNext reports whether a next page exists.
func (p Pagination) HasNext() bool { return p.CurrentPage < p.TotalPages }

// First is the 1-based index of the first item on the page.
func (p Pagination) First() int {
	if p.TotalItems == 0 {
		return 0
	}
	return (p.CurrentPage-1)*p.PerPage + 1
}

// Last is the 1-based index of the last item on the page.
func (p Pagination) Last() int {
	last := p.CurrentPage * p.PerPage
	if last > p.TotalItems {
		return p.TotalItems
	}
	return last
}

// OrderStats is the seller order summary.
type OrderStats struct {
	TotalOrders     int          `json:"total_orders"`
	PendingCount    int          `json:"pending_count"`
	ProcessingCount int          `json:"processing_count"`
	ShippedCount    int          `json:"shipped_count"`
	DeliveredCount  int          `json:"delivered_count"`
	CancelledCount  int          `json:"cancelled_count"`
	TotalRevenue    money.Amount `json:"total_revenue"`
	AvgOrderValue   money.Amount `json:"avg_order_value"`
}

// SellerOrderList is one page of seller orders.
type SellerOrderList struct {
	Orders     []Order     `json:"orders"`
	Pagination Pagination  `json:"pagination"`
	Stats      *OrderStats `json:"stats"`
}

// RevenuePoint is one day of seller revenue.
type RevenuePoint struct {
	Date    string       `json:"date"`
	Revenue money.Amount `json:"revenue"`
	Orders  int          `json:"orders"`
}

// SellerProfile is the seller's store.
type SellerProfile struct {
	ID                  ID     `json:"id"`
	StoreName           string `json:"store_name"`
	BusinessType        string `json:"business_type"`
	BusinessDescription string `json:"business_description"`
	IsVerified          bool   `json:"is_verified"`
}

// SellerApplication is the result of GET /api/seller/application/status.
type SellerApplication struct {
	Status          string `json:"status"`
	StoreName       string `json:"store_name"`
	RejectionReason string `json:"rejection_reason"`
	CreatedAt       string `json:"created_at"`
}

// Application statuses.
const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

// Profile is the shopper's profile.
type Profile struct {
	ID                      ID     `json:"id"`
	FullName                string `json:"full_name"`
	Email                   string `json:"email"`
	Phone                   string `json:"phone"`
	Bio                     string `json:"bio"`
	SocialHandle            string `json:"social_handle"`
	ProfileImage            string `json:"profile_image"`
	IsSeller                bool   `json:"is_seller"`
	StoreName               string `json:"store_name"`
	SellerApplicationStatus string `json:"seller_application_status"`
	HasPendingApplication   bool   `json:"has_pending_application"`
}

// Statistics is the profile statistics block.
type Statistics struct {
	TotalOrders    int          `json:"total_orders"`
	TotalSpent     money.Amount `json:"total_spent"`
	LoyaltyPoints  int          `json:"loyalty_points"`
	TotalProducts  int          `json:"total_products"`
	AverageRating  float64      `json:"average_rating"`
	PendingOrders  int          `json:"pending_orders"`
	WishlistCount  int          `json:"wishlist_count"`
	ReviewsWritten int          `json:"reviews_written"`
}

// Transaction is one entry of the profile transaction list.
type Transaction struct {
	ID            ID           `json:"id"`
	OrderID       ID           `json:"order_id"`
	TransactionID ID           `json:"transaction_id"`
	OrderNumber   string       `json:"order_number"`
	ProductName   string       `json:"product_name"`
	Description   string       `json:"description"`
	Amount        money.Amount `json:"amount"`
	Status        string       `json:"status"`
	Type          string       `json:"type"`
	PurchasedDate string       `json:"purchased_date"`
	CreatedAt     string       `json:"created_at"`
}

// Reference is the identifier shown for the transaction.
func (t Transaction) Reference() string {
	switch {
	case t.OrderNumber != "":
		return t.OrderNumber
	case t.OrderID != "":
		return t.OrderID.String()
	case t.TransactionID != "":
		return t.TransactionID.String()
	}
	return "N/A"
}

// Date is purchased_date when set, else created_at.
func (t Transaction) Date() string {
	if t.PurchasedDate != "" {
		return t.PurchasedDate
	}
	return t.CreatedAt
}

// Dashboard is GET /api/profile/dashboard.
type Dashboard struct {
	Profile            Profile       `json:"profile"`
	Statistics         Statistics    `json:"statistics"`
	RecentTransactions []Transaction `json:"recent_transactions"`
}

// ShippingInfo is the checkout address.
type ShippingInfo struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
}

// CheckoutRequest is POST /api/checkout/create.
type CheckoutRequest struct {
	PaymentMethod  string       `json:"payment_method"`
	ShippingInfo   ShippingInfo `json:"shipping_info"`
	DeliveryOption string       `json:"delivery_option"`
	CustomerNotes  *string      `json:"customer_notes"`
}

// CheckoutResult is the answer to a successful checkout.
type CheckoutResult struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	OrderID     ID           `json:"order_id"`
	OrderNumber string       `json:"order_number"`
	Total       money.Amount `json:"total"`
}

// ProductInput is the body of seller product create/update.
type ProductInput struct {
	Name             string   `json:"name"`
	Slug             string   `json:"slug,omitempty"`
	CategoryID       ID       `json:"category_id"`
	SKU              *string  `json:"sku"`
	ShortDescription *string  `json:"short_description"`
	Description      *string  `json:"description"`
	Price            float64  `json:"price"`
	CompareAtPrice   *float64 `json:"compare_at_price"`
	QuantityInStock  int      `json:"quantity_in_stock"`
	Weight           *float64 `json:"weight"`
	ImageURL         *string  `json:"image_url"`
	IsFeatured       bool     `json:"is_featured"`
	IsActive         bool     `json:"is_active"`
}

// SellerApplicationRequest is POST /api/seller/apply.
type SellerApplicationRequest struct {
	StoreName           string `json:"store_name"`
	BusinessType        string `json:"business_type"`
	BusinessDescription string `json:"business_description"`
}
