package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

type CategoryAmount struct {
	Category string
	Amount   decimal.Decimal
	Count    int
}

type MonthAmount struct {
	Month  core.Month
	Amount decimal.Decimal
	Count  int
}

// Sum adds the amounts of rows; empty input sums to zero.
func Sum(rows []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}

// Mean is the per-transaction mean. ok is false for empty input, in which
// case the mean is zero.
func Mean(rows []core.Transaction) (mean decimal.Decimal, ok bool) {
	return meanOf(Sum(rows), len(rows))
}

func meanOf(sum decimal.Decimal, count int) (decimal.Decimal, bool) {
	if count == 0 {
		return decimal.Zero, false
	}
	return sum.Div(decimal.NewFromInt(int64(count))), true
}

// ExpensesByCategory sums the non-income rows per category, sorted by
// category name.
func ExpensesByCategory(rows []core.Transaction) []CategoryAmount {
	idx := map[string]int{}
	var out []CategoryAmount
	for _, r := range rows {
		if r.IsIncome() {
			continue
		}
		i, ok := idx[r.Category]
		if !ok {
			i = len(out)
			idx[r.Category] = i
			out = append(out, CategoryAmount{Category: r.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(r.Amount)
		out[i].Count++
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Category < out[b].Category })
	return out
}

// ByMonth sums rows per known month. Only months present are returned,
// in calendar order.
func ByMonth(rows []core.Transaction) []MonthAmount {
	var sums [13]decimal.Decimal
	var counts [13]int
	for _, r := range rows {
		if !r.Month.Valid() {
			continue
		}
		sums[r.Month] = sums[r.Month].Add(r.Amount)
		counts[r.Month]++
	}
	var out []MonthAmount
	for _, m := range core.Months() {
		if counts[m] == 0 {
			continue
		}
		out = append(out, MonthAmount{Month: m, Amount: sums[m], Count: counts[m]})
	}
	return out
}
