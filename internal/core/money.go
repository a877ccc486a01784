// Package core holds the domain types of the ledger and the money rules
// shared by every other package.
//
// Amounts are persisted and summed as integer cents. Conversion to and from
// major units happens only at the edges (request parsing, JSON, exports).
package core

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major unit amount to cents, rounding half away from zero.
func ToMinorUnits(major decimal.Decimal) int64 {
	return major.Mul(hundred).Round(0).IntPart()
}

// ToMajorUnits converts cents to a major unit amount.
func ToMajorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ParseDecimalToCents converts a user supplied decimal string to cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Extra fractional
// digits are rounded half away from zero. Signs, exponents, empty input and
// amounts that round to zero are rejected with ErrInvalidAmount.
//
//	ParseDecimalToCents("150.50") -> 15050, nil
//	ParseDecimalToCents("150,50") -> 15050, nil
//	ParseDecimalToCents("1.005")  -> 101, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.':
		default:
			return 0, ErrInvalidAmount
		}
	}
	if digits == 0 {
		return 0, ErrInvalidAmount
	}
	// Guard against int64 overflow once multiplied by 100.
	intPart, _, _ := strings.Cut(s, ".")
	if len(strings.TrimLeft(intPart, "0")) > 16 {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := ToMinorUnits(d)
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// Major returns the amount in major units.
func (m Money) Major() decimal.Decimal {
	return ToMajorUnits(m.Cents)
}

// String renders the amount with exactly two decimals, e.g. "2000.00".
func (m Money) String() string {
	return m.Major().StringFixed(2)
}

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// MarshalJSON encodes the amount as a JSON number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or string in major units.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		m.Cents = 0
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(string(data), ",", "."))
	if err != nil {
		return ErrInvalidAmount
	}
	m.Cents = ToMinorUnits(d)
	return nil
}
