// Package money handles the monetary values the backend sends, which arrive
// as JSON numbers, numeric strings or null depending on the endpoint.
package money

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Symbol is the display currency (Philippine peso).
const Symbol = "₱"

// Amount is a monetary value decoded leniently: numbers and numeric strings
// are accepted, anything else (null, "", "not-a-number", objects) is zero.
// Decoding never fails.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount(Parse(data))
	return nil
}

// MarshalJSON writes the amount as a plain number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(a), 'f', -1, 64)), nil
}

// Float returns the amount as float64.
func (a Amount) Float() float64 { return float64(a) }

// String formats the amount for display, e.g. "₱1200.00".
func (a Amount) String() string { return Format(float64(a)) }

// Parse extracts a number from a raw JSON value, returning 0 for anything
// that is not a finite number or numeric string.
func Parse(raw []byte) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		return ParseString(s)
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	return finite(f)
}

// ParseString parses a numeric string, tolerating surrounding space, a
// leading peso sign and thousands separators. Non-numeric input yields 0.
func ParseString(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, Symbol)
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Format renders v with the peso sign and two decimals, no grouping.
func Format(v float64) string {
	v = Round2(finite(v))
	if v == 0 {
		v = 0 // drop negative zero
	}
	if v < 0 {
		return fmt.Sprintf("-%s%.2f", Symbol, -v)
	}
	return fmt.Sprintf("%s%.2f", Symbol, v)
}

// Round2 rounds to centavos.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
