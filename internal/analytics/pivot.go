package analytics

import (
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// Pivot holds totals per year and month. Months and Years list
// only what occurs; a cell missing from Cells has no data.
type Pivot struct {
	Months []core.Month
	Years  []string
	Cells  map[string]map[core.Month]decimal.Decimal
}

func (p Pivot) Value(year string, m core.Month) (decimal.Decimal, bool) {
	row, ok := p.Cells[year]
	if !ok {
		return decimal.Zero, false
	}
	v, ok := row[m]
	return v, ok
}

func (p Pivot) Empty() bool { return len(p.Years) == 0 }

// YearMonthTrend pivots every row with a known month into year by month
// totals, income included.
func YearMonthTrend(rows []core.Transaction) Pivot {
	p := Pivot{Cells: map[string]map[core.Month]decimal.Decimal{}}
	var monthSeen [13]bool
	for _, r := range rows {
		if !r.Month.Valid() {
			continue
		}
		row, ok := p.Cells[r.Year]
		if !ok {
			row = map[core.Month]decimal.Decimal{}
			p.Cells[r.Year] = row
			p.Years = append(p.Years, r.Year)
		}
		row[r.Month] = row[r.Month].Add(r.Amount)
		monthSeen[r.Month] = true
	}
	for _, m := range core.Months() {
		if monthSeen[m] {
			p.Months = append(p.Months, m)
		}
	}
	core.SortYears(p.Years)
	return p
}
