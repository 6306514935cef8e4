// Package num wraps the decimal arithmetic used throughout the ledger.
// All quantity math is exact; derived rates and prices are truncated to
// eight fractional digits, which is also the serialization precision.
package num

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits carried by derived
// rates and by all serialized quantities.
const Precision = 8

var One = decimal.NewFromInt(1)

// Mul multiplies two decimals, truncated to the ledger precision.
func Mul(n1, n2 decimal.Decimal) decimal.Decimal {
	return n1.Mul(n2).Truncate(Precision)
}

// Div divides n1 by n2, truncated to the ledger precision.
func Div(n1, n2 decimal.Decimal) decimal.Decimal {
	return n1.DivRound(n2, Precision+1).Truncate(Precision)
}

// Invert returns 1/n, truncated to the ledger precision.
func Invert(n decimal.Decimal) decimal.Decimal {
	return Div(One, n)
}

func Sum(ns ...decimal.Decimal) decimal.Decimal {
	var res decimal.Decimal
	for _, n := range ns {
		res = res.Add(n)
	}
	return res
}

// Fixed renders n as a fixed-point string with eight fractional digits.
func Fixed(n decimal.Decimal) string {
	return n.StringFixed(Precision)
}

// Parse parses a decimal string, tolerating thousands separators
// ("1,000.5").
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing decimal %q: %w", s, err)
	}
	return d, nil
}

// Min returns the smaller of two decimals.
func Min(n1, n2 decimal.Decimal) decimal.Decimal {
	if n1.LessThan(n2) {
		return n1
	}
	return n2
}
