// Package core holds the transaction model shared by every stage of the
// pipeline: month domain, amount parsing and the normalized table.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts an amount string into an exact decimal.
//
// Both dot (12.50) and comma (12,50) are accepted as decimal separator.
// Thousands separators are not supported: "1.234,56" becomes "1.234.56"
// after normalization and is rejected.
//
// Examples:
//
//	ParseAmount("12,50")  -> 12.5
//	ParseAmount(" 7.25 ") -> 7.25
//	ParseAmount("-3,00")  -> -3
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// FormatAmount renders an amount in the dot-decimal form ParseAmount reads.
func FormatAmount(d decimal.Decimal) string {
	return d.String()
}
