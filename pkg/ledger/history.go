package ledger

import "strings"

// Order-history tabs.
const (
	TabPending   = "pending"
	TabCompleted = "completed"
)

// HistoryTab returns the tab an order status belongs to, or "" for statuses
// shown on neither (cancelled, refunded, unknown).
func HistoryTab(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pending", "processing", "shipped":
		return TabPending
	case "delivered", "completed":
		return TabCompleted
	}
	return ""
}

// SplitHistory partitions orders into the pending and completed tabs,
// preserving input order within each.
func SplitHistory[T any](orders []T, status func(T) string) (pending, completed []T) {
	for _, o := range orders {
		switch HistoryTab(status(o)) {
		case TabPending:
			pending = append(pending, o)
		case TabCompleted:
			completed = append(completed, o)
		}
	}
	return pending, completed
}

// Search keeps orders where any of the strings returned by fields contains
// query, case-insensitively. A blank query returns orders unchanged.
func Search[T any](orders []T, query string, fields func(T) []string) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return orders
	}
	out := make([]T, 0, len(orders))
	for _, o := range orders {
		for _, f := range fields(o) {
			if strings.Contains(strings.ToLower(f), q) {
				out = append(out, o)
				break
			}
		}
	}
	return out
}
