package ledger

import (
	"sort"
	"strings"
	"time"
)

const (
	// MarketplaceFeeRate is the marketplace's cut of seller revenue.
	MarketplaceFeeRate = 0.10
	// SellerShareRate is what the seller keeps.
	SellerShareRate = 1 - MarketplaceFeeRate
	// PayoutDay is the day of the month payouts are released.
	PayoutDay = 15
)

// Transaction types shown in the payout history.
const (
	TxSale      = "Sale Revenue"
	TxCancelled = "Cancelled Order"
	TxPending   = "Pending Sale"
)

// RevenuePoint is one day of the seller revenue series.
type RevenuePoint struct {
	Date    string
	Revenue float64
}

// PayoutSummary is the header of the payouts page.
type PayoutSummary struct {
	TotalRevenue     float64
	MarketplaceFee   float64
	SellerShare      float64
	AvailableBalance float64
	TotalOrders      int
	AverageOrder     float64
	NextPayoutDate   time.Time
}

// Transaction is one row of the payout history.
type Transaction struct {
	OrderID     string
	OrderNumber string
	Date        time.Time // zero when the order timestamp did not parse
	Type        string
	Amount      float64
	Credit      bool
	Status      string
}

// earning reports whether an order in this status counts towards the
// seller's balance.
func earning(status string) bool {
	switch strings.ToLower(status) {
	case "delivered", "shipped", "processing":
		return true
	}
	return false
}

// SellerAmount is the seller's cut of an order: the backend's seller_payout
// when set, otherwise seller_subtotal.
func (o Order) SellerAmount() float64 {
	if o.SellerPayout != 0 {
		return o.SellerPayout
	}
	return o.SellerSubtotal
}

// Balance sums SellerAmount over orders that are delivered, shipped or
// processing.
func Balance(orders []Order) float64 {
	var total float64
	for _, o := range orders {
		if earning(o.Status) {
			total += o.SellerAmount()
		}
	}
	return total
}

// Summarize builds the payout summary. Revenue is the sum of the series;
// when the series is empty the stats total (fallbackRevenue) is used.
func Summarize(series []RevenuePoint, fallbackRevenue float64, totalOrders int, avgOrder float64, orders []Order, now time.Time) PayoutSummary {
	revenue := fallbackRevenue
	if len(series) > 0 {
		revenue = 0
		for _, p := range series {
			revenue += p.Revenue
		}
	}

	return PayoutSummary{
		TotalRevenue:     revenue,
		MarketplaceFee:   revenue * MarketplaceFeeRate,
		SellerShare:      revenue * SellerShareRate,
		AvailableBalance: Balance(orders),
		TotalOrders:      totalOrders,
		AverageOrder:     avgOrder,
		NextPayoutDate:   NextPayoutDate(now),
	}
}

// NextPayoutDate returns PayoutDay of the month after now, in now's
// location.
func NextPayoutDate(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m+1, PayoutDay, 0, 0, 0, 0, now.Location())
}

// TransactionType labels an order for the payout history.
func TransactionType(status string) string {
	switch strings.ToLower(status) {
	case "cancelled":
		return TxCancelled
	case "delivered":
		return TxSale
	default:
		return TxPending
	}
}

// Transactions converts orders into payout history rows, newest first.
// Orders with unparsable timestamps sort last in their input order.
func Transactions(orders []Order) []Transaction {
	txs := make([]Transaction, 0, len(orders))
	for _, o := range orders {
		ts, _ := ParseTimestamp(o.CreatedAt)
		txs = append(txs, Transaction{
			OrderID:     o.ID,
			OrderNumber: o.Number,
			Date:        ts,
			Type:        TransactionType(o.Status),
			Amount:      o.SellerAmount(),
			Credit:      earning(o.Status),
			Status:      o.Status,
		})
	}

	sort.SliceStable(txs, func(a, b int) bool {
		return txs[a].Date.After(txs[b].Date)
	})
	return txs
}
