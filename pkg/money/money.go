// Package money holds the single rounding rule used wherever a derived dollar
// value crosses into persisted integer cents.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ToCents converts a dollar amount to integer cents, rounding half away from zero.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromCents converts integer cents into a dollar amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// CentsOfProduct returns round(amount * quantity) in cents without rounding
// the factors first.
func CentsOfProduct(amount, quantity decimal.Decimal) int64 {
	return ToCents(amount.Mul(quantity))
}

// FormatCents renders cents as a fixed two decimal dollar string.
func FormatCents(cents int64) string {
	return FromCents(cents).StringFixed(2)
}

// Format renders a decimal with a fixed number of places, rounding half up.
func Format(value decimal.Decimal, places int32) string {
	return value.StringFixed(places)
}

// MustParse parses a decimal literal and panics on malformed input. Intended for
// constants and tests.
func MustParse(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		panic(fmt.Sprintf("money: invalid decimal %q: %v", raw, err))
	}
	return d
}
