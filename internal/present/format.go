// Package present turns analytics reports into display-ready values:
// formatted money, chart series and metric cards.
package present

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Money renders an amount with two decimals and the euro sign.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2) + " €"
}

// SignedMoney always prints the sign, as metric deltas do.
func SignedMoney(d decimal.Decimal) string {
	if d.Sign() >= 0 {
		return "+" + Money(d)
	}
	return Money(d)
}

// Percent renders a share already expressed in percent.
func Percent(d decimal.Decimal) string {
	return d.StringFixed(1) + "%"
}

// Share is part/total as a percentage, zero when total is zero.
func Share(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(hundred)
}

// Label returns a display label for a year or month that may be empty.
func Label(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
