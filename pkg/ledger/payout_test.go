package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalance(t *testing.T) {
	orders := []Order{
		{Status: "delivered", SellerPayout: 90},
		{Status: "shipped", SellerSubtotal: 45}, // no payout yet, subtotal is used
		{Status: "processing", SellerPayout: 10, SellerSubtotal: 99},
		{Status: "pending", SellerPayout: 1000},
		{Status: "cancelled", SellerPayout: 1000},
	}
	assert.InDelta(t, 145, Balance(orders), 1e-9)
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC)

	t.Run("series", func(t *testing.T) {
		s := Summarize([]RevenuePoint{{Date: "2024-03-01", Revenue: 600}, {Date: "2024-03-02", Revenue: 400}}, 5, 4, 250, nil, now)
		assert.InDelta(t, 1000, s.TotalRevenue, 1e-9)
		assert.InDelta(t, 100, s.MarketplaceFee, 1e-9)
		assert.InDelta(t, 900, s.SellerShare, 1e-9)
		assert.Equal(t, 4, s.TotalOrders)
		assert.InDelta(t, 250, s.AverageOrder, 1e-9)
	})

	t.Run("falls back to stats total", func(t *testing.T) {
		s := Summarize(nil, 500, 0, 0, []Order{{Status: "delivered", SellerPayout: 42}}, now)
		assert.InDelta(t, 500, s.TotalRevenue, 1e-9)
		assert.InDelta(t, 42, s.AvailableBalance, 1e-9)
	})
}

func TestNextPayoutDate(t *testing.T) {
	tests := []struct {
		now, want time.Time
	}{
		{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 3, 31, 23, 59, 0, 0, time.UTC), time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NextPayoutDate(tt.now))
	}
}

func TestTransactions(t *testing.T) {
	txs := Transactions([]Order{
		{ID: "1", Number: "ORD-1", Status: "delivered", SellerPayout: 90, CreatedAt: "2024-03-01T00:00:00Z"},
		{ID: "2", Number: "ORD-2", Status: "cancelled", SellerSubtotal: 30, CreatedAt: "2024-03-03T00:00:00Z"},
		{ID: "3", Number: "ORD-3", Status: "shipped", SellerPayout: 12, CreatedAt: "garbage"},
		{ID: "4", Number: "ORD-4", Status: "pending", SellerPayout: 7, CreatedAt: "2024-03-02T00:00:00Z"},
	})

	require.Len(t, txs, 4)
	got := []string{txs[0].OrderNumber, txs[1].OrderNumber, txs[2].OrderNumber, txs[3].OrderNumber}
	assert.Equal(t, []string{"ORD-2", "ORD-4", "ORD-1", "ORD-3"}, got)

	assert.Equal(t, TxCancelled, txs[0].Type)
	assert.False(t, txs[0].Credit)
	assert.Equal(t, TxPending, txs[1].Type)
	assert.Equal(t, TxSale, txs[2].Type)
	assert.True(t, txs[2].Credit)
	assert.InDelta(t, 90, txs[2].Amount, 1e-9)
	assert.True(t, txs[3].Date.IsZero())
}
