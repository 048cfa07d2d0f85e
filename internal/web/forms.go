package web

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/minimall/storefront/pkg/api"
)

// Payment methods accepted at checkout, in display order.
var paymentMethods = []string{"credit_card", "debit_card", "gcash", "paymaya", "cash_on_delivery", "bank_transfer"}

var paymentLabels = map[string]string{
	"credit_card":      "Credit Card",
	"debit_card":       "Debit Card",
	"gcash":            "GCash",
	"paymaya":          "PayMaya",
	"cash_on_delivery": "Cash on Delivery",
	"bank_transfer":    "Bank Transfer",
}

var deliveryOptions = []string{api.DeliveryStandard, api.DeliveryExpress}

var businessTypes = []string{"individual", "business"}

type signInForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

type signUpForm struct {
	FullName string `form:"full_name" validate:"required,max=120"`
	Email    string `form:"email" validate:"required,email"`
	Phone    string `form:"phone" validate:"omitempty,min=7,max=20"`
	Password string `form:"password" validate:"required,min=8"`
	Confirm  string `form:"confirm_password" validate:"eqfield=Password"`
}

type otpForm struct {
	Code string `form:"code" validate:"required,len=6,numeric"`
}

type shippingForm struct {
	FullName     string `form:"full_name" validate:"required,max=120"`
	Phone        string `form:"phone" validate:"required,min=7,max=20"`
	AddressLine1 string `form:"address_line1" validate:"required,max=200"`
	AddressLine2 string `form:"address_line2" validate:"max=200"`
	City         string `form:"city" validate:"required,max=100"`
	State        string `form:"state" validate:"required,max=100"`
	PostalCode   string `form:"postal_code" validate:"required,numeric,min=4,max=10"`
}

type checkoutForm struct {
	Delivery string       `form:"delivery_option" validate:"required,oneof=standard express"`
	Payment  string       `form:"payment_method" validate:"required,oneof=credit_card debit_card gcash paymaya cash_on_delivery bank_transfer"`
	Shipping shippingForm `form:"shipping"`
	Notes    string       `form:"customer_notes" validate:"max=500"`
}

type sellerApplicationForm struct {
	StoreName    string `form:"store_name" validate:"required,min=3,max=100"`
	BusinessType string `form:"business_type" validate:"required,oneof=individual business"`
	Description  string `form:"business_description" validate:"max=1000"`
}

type statusForm struct {
	Status   string `form:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
	Tracking string `form:"tracking_number" validate:"required_if=Status shipped,max=100"`
	Notes    string `form:"notes" validate:"max=500"`
}

type productForm struct {
	Name             string  `form:"name" validate:"required,max=200"`
	CategoryID       string  `form:"category_id" validate:"required,numeric"`
	SKU              string  `form:"sku" validate:"max=64"`
	ShortDescription string  `form:"short_description" validate:"max=300"`
	Description      string  `form:"description" validate:"max=5000"`
	Price            float64 `form:"price" validate:"gt=0"`
	CompareAtPrice   float64 `form:"compare_at_price" validate:"omitempty,gtfield=Price"`
	Stock            int     `form:"quantity_in_stock" validate:"gte=0"`
	Weight           float64 `form:"weight" validate:"gte=0"`
	ImageURL         string  `form:"image_url" validate:"omitempty,url"`
	IsFeatured       bool    `form:"is_featured"`
	IsActive         bool    `form:"is_active"`
}

func (f productForm) input() api.ProductInput {
	in := api.ProductInput{
		Name:            f.Name,
		Slug:            slugify(f.Name),
		CategoryID:      api.ID(f.CategoryID),
		Price:           f.Price,
		QuantityInStock: f.Stock,
		IsFeatured:      f.IsFeatured,
		IsActive:        f.IsActive,
	}
	in.SKU = optional(f.SKU)
	in.ShortDescription = optional(f.ShortDescription)
	in.Description = optional(f.Description)
	in.ImageURL = optional(f.ImageURL)
	if f.CompareAtPrice > 0 {
		v := f.CompareAtPrice
		in.CompareAtPrice = &v
	}
	if f.Weight > 0 {
		w := f.Weight
		in.Weight = &w
	}
	return in
}

// slugify lowercases name, keeps letters, digits and dashes, and joins
// words with single dashes.
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case r == ' ' || r == '-' || r == '_':
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseFloat reads a price field. Unreadable input becomes -1 so the
// validator rejects it instead of treating it as empty.
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return -1
	}
	return f
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

// FieldProblem is one rejected form field.
type FieldProblem struct {
	Field   string
	Message string
}

// FormError lists the fields a submitted form got wrong.
type FormError struct {
	Fields []FieldProblem
}

func (e *FormError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "invalid form: " + strings.Join(msgs, "; ")
}

// Unwrap classifies form errors with the backend's validation errors.
func (e *FormError) Unwrap() error { return api.ErrValidation }

// Message returns the message for field, or "".
func (e *FormError) Message(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check validates form and turns validator output into a FormError.
func (a *App) check(form interface{}) error {
	err := a.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate form")
	}
	fe := &FormError{}
	for _, e := range verrs {
		fe.Fields = append(fe.Fields, FieldProblem{Field: e.Field(), Message: fieldMessage(e)})
	}
	return fe
}

func fieldMessage(e validator.FieldError) string {
	name := label(e.Field())
	numeric := false
	switch e.Kind() {
	case reflect.Int, reflect.Int64, reflect.Float64:
		numeric = true
	}

	switch e.Tag() {
	case "required":
		return name + " is required"
	case "required_if":
		return name + " is required for this status"
	case "email":
		return name + " must be a valid email address"
	case "url":
		return name + " must be a valid URL"
	case "numeric":
		return name + " must contain digits only"
	case "len":
		return fmt.Sprintf("%s must be %s characters", name, e.Param())
	case "min":
		if numeric {
			return fmt.Sprintf("%s must be at least %s", name, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", name, e.Param())
	case "max":
		if numeric {
			return fmt.Sprintf("%s must be at most %s", name, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", name, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", name, e.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", name, strings.ToLower(label(e.Param())))
	case "eqfield":
		return "Passwords do not match"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(e.Param(), " ", ", "))
	}
	return name + " is invalid"
}

// label turns a field name such as "address_line1" or "CompareAtPrice"
// into "Address line1" / "Compare at price".
func label(field string) string {
	field = strings.ReplaceAll(field, "_", " ")
	var b strings.Builder
	for i, r := range field {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	s := strings.TrimSpace(b.String())
	if s == "" {
		return "Field"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
