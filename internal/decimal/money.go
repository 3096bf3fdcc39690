package decimal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

// FromString parses decimal from string, ignoring surrounding whitespace
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// Coerce parses s and reports whether it held a number.
// Empty or non-numeric input yields Zero and false.
func Coerce(s string) (decimal.Decimal, bool) {
	if strings.TrimSpace(s) == "" {
		return Zero, false
	}
	d, err := FromString(s)
	if err != nil {
		return Zero, false
	}
	return d, true
}

// Key returns a canonical string for d so that numerically equal values
// written with different precision ("12.00", "12.0", "12") share one key.
func Key(d decimal.Decimal) string {
	return d.String()
}

// Fixed renders d with exactly places decimals
func Fixed(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// IsPositive returns true if decimal is greater than zero
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(Zero)
}

// IsNegative returns true if decimal is less than zero
func IsNegative(d decimal.Decimal) bool {
	return d.LessThan(Zero)
}
