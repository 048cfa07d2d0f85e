// Package ledger derives the seller-side views that are computed from raw
// order lists rather than served by the backend: the customer ledger, the
// payout summary and the order-history split.
//
// Everything here is a pure function of its input. Nothing is cached or
// persisted; callers rebuild the views from freshly fetched orders on every
// page load.
package ledger

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	// UnknownCustomer is the display name used when an order carries neither
	// a name nor an email.
	UnknownCustomer = "Unknown Customer"
	// UnknownInitials goes with UnknownCustomer.
	UnknownInitials = "UC"
	// NoEmail is displayed for customers without an email address.
	NoEmail = "N/A"
)

// Order is the subset of an order record the ledger views need.
type Order struct {
	ID             string
	Number         string
	CustomerID     string // empty means the order is not attributed to anyone
	CustomerName   string
	CustomerEmail  string
	Amount         float64
	CreatedAt      string // raw backend timestamp
	Status         string
	SellerPayout   float64
	SellerSubtotal float64
}

// Customer is one row of the customer ledger.
type Customer struct {
	ID         string
	Name       string
	Email      string
	Initials   string
	TotalSpent float64
	OrderCount int
	// LastOrder is the latest parseable order timestamp; zero if none parsed.
	LastOrder time.Time
}

// AverageOrder is TotalSpent / OrderCount.
func (c Customer) AverageOrder() float64 {
	if c.OrderCount == 0 {
		return 0
	}
	return c.TotalSpent / float64(c.OrderCount)
}

// Aggregate groups orders by customer and returns one Customer per distinct
// CustomerID, ordered by TotalSpent descending. Customers with equal totals
// keep the order in which they first appear in orders. Orders without a
// CustomerID are ignored.
//
// Name and email come from the first order seen for a customer. LastOrder
// only moves forward: a later order replaces it when its timestamp parses
// and is strictly after the current value, so unparsable timestamps and
// ties never override it.
func Aggregate(orders []Order) []Customer {
	index := make(map[string]int)
	customers := make([]Customer, 0)

	for _, o := range orders {
		id := strings.TrimSpace(o.CustomerID)
		if id == "" {
			continue
		}

		i, seen := index[id]
		if !seen {
			name := DisplayName(o.CustomerName, o.CustomerEmail)
			email := strings.TrimSpace(o.CustomerEmail)
			if email == "" {
				email = NoEmail
			}
			customers = append(customers, Customer{
				ID:       id,
				Name:     name,
				Email:    email,
				Initials: Initials(name),
			})
			i = len(customers) - 1
			index[id] = i
		}

		c := &customers[i]
		c.TotalSpent += o.Amount
		c.OrderCount++

		if ts, ok := ParseTimestamp(o.CreatedAt); ok && ts.After(c.LastOrder) {
			c.LastOrder = ts
		}
	}

	sort.SliceStable(customers, func(a, b int) bool {
		return customers[a].TotalSpent > customers[b].TotalSpent
	})
	return customers
}

// DisplayName returns name when it is non-blank, otherwise a name derived
// from the local part of email ("john.doe@x.com" -> "John Doe"), otherwise
// UnknownCustomer.
func DisplayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if derived := NameFromEmail(email); derived != "" {
		return derived
	}
	return UnknownCustomer
}

// NameFromEmail splits the local part of email on '.', '_' and '-',
// capitalizes each piece and joins them with spaces. It returns "" when
// there is nothing to derive from, including the NoEmail placeholder.
func NameFromEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == NoEmail {
		return ""
	}
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return ""
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Initials returns the two-letter badge for a display name: the first
// letters of the first and last words, or the first two letters of a single
// word. UnknownCustomer and blank names yield UnknownInitials.
func Initials(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == UnknownCustomer {
		return UnknownInitials
	}

	words := strings.Fields(name)
	if len(words) >= 2 {
		first, _ := utf8.DecodeRuneInString(words[0])
		last, _ := utf8.DecodeRuneInString(words[len(words)-1])
		return strings.ToUpper(string([]rune{first, last}))
	}

	runes := []rune(words[0])
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes))
}

// FilterCustomers keeps customers whose name or email contains query,
// case-insensitively. A blank query returns the input unchanged.
func FilterCustomers(customers []Customer, query string) []Customer {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return customers
	}
	out := make([]Customer, 0, len(customers))
	for _, c := range customers {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Email), q) {
			out = append(out, c)
		}
	}
	return out
}

// timestampLayouts are tried in order. The backend emits ISO 8601, with or
// without a zone and fractional seconds.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses a backend timestamp. Zone-less values are UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
