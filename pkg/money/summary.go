package money

import "math"

// Summary is the checkout price breakdown returned by
// GET /api/checkout/calculate-total.
type Summary struct {
	Subtotal       Amount `json:"subtotal"`
	Tax            Amount `json:"tax"`
	ShippingFee    Amount `json:"shipping_fee"`
	MarketplaceFee Amount `json:"marketplace_fee"`
	Total          Amount `json:"total"`
	ItemCount      int    `json:"item_count"`
}

// ComputedTotal is subtotal + tax + shipping + marketplace fee, rounded to
// centavos.
func (s Summary) ComputedTotal() float64 {
	return Round2(s.Subtotal.Float() + s.Tax.Float() + s.ShippingFee.Float() + s.MarketplaceFee.Float())
}

// DisplayTotal is the total shown to the shopper. It is always the sum of the
// displayed components, so the page can never show lines that do not add up.
func (s Summary) DisplayTotal() string {
	return Format(s.ComputedTotal())
}

// Consistent reports whether the backend's total agrees with the components
// to the centavo.
func (s Summary) Consistent() bool {
	return math.Abs(Round2(s.Total.Float())-s.ComputedTotal()) < 0.005
}
