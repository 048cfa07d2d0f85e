package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type historyOrder struct {
	number string
	status string
	items  []string
}

func TestSplitHistory(t *testing.T) {
	orders := []historyOrder{
		{number: "1", status: "pending"},
		{number: "2", status: "delivered"},
		{number: "3", status: "Shipped"},
		{number: "4", status: "cancelled"},
		{number: "5", status: "completed"},
		{number: "6", status: "processing"},
	}

	pending, completed := SplitHistory(orders, func(o historyOrder) string { return o.status })

	numbers := func(os []historyOrder) []string {
		out := []string{}
		for _, o := range os {
			out = append(out, o.number)
		}
		return out
	}
	assert.Equal(t, []string{"1", "3", "6"}, numbers(pending))
	assert.Equal(t, []string{"2", "5"}, numbers(completed))
}

func TestSearch(t *testing.T) {
	orders := []historyOrder{
		{number: "ORD-100", items: []string{"Rice Cooker"}},
		{number: "ORD-200", items: []string{"Electric Fan", "Extension Cord"}},
	}
	fields := func(o historyOrder) []string { return append([]string{o.number}, o.items...) }

	tests := []struct {
		query string
		want  int
	}{
		{"", 2},
		{"ord-1", 1},
		{"cord", 1},
		{"  FAN ", 1},
		{"blender", 0},
	}
	for _, tt := range tests {
		assert.Len(t, Search(orders, tt.query, fields), tt.want, "query %q", tt.query)
	}
}
