// Package money provides currency rounding and formatting helpers.
// All amounts in the system are decimal.Decimal; this package centralizes
// the configured precision and the epsilon used by balance checks.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SerialEpsilon is the tolerance used by the serial-control balance check.
var SerialEpsilon = decimal.RequireFromString("0.0001")

// Round rounds an amount half-up to the given number of decimal places.
func Round(amount decimal.Decimal, decimals int32) decimal.Decimal {
	return amount.Round(decimals)
}

// Epsilon returns the balance tolerance for a precision: 10^-(decimals+1).
func Epsilon(decimals int32) decimal.Decimal {
	return decimal.New(1, -(decimals + 1))
}

// IsZero reports whether amount is zero within the tolerance for decimals.
func IsZero(amount decimal.Decimal, decimals int32) bool {
	return amount.Abs().LessThan(Epsilon(decimals))
}

// Format renders an amount with the configured precision and currency symbol,
// e.g. "62.50 €".
func Format(amount decimal.Decimal, decimals int32, symbol string) string {
	return fmt.Sprintf("%s %s", amount.StringFixed(decimals), symbol)
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
