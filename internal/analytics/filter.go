// Package analytics computes the dashboard figures from a normalized table:
// filtering, grouped totals, the year by month trend and current-period
// metrics.
package analytics

import (
	"sort"

	"bilancio/internal/core"
)

// Filter restricts one dimension. The zero value matches everything;
// Only with no values matches nothing.
type Filter struct {
	values map[string]struct{}
}

// All matches every value.
func All() Filter { return Filter{} }

// Only matches the given values exactly.
func Only(values ...string) Filter {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return Filter{values: m}
}

func (f Filter) IsAll() bool { return f.values == nil }

func (f Filter) Contains(v string) bool {
	if f.values == nil {
		return true
	}
	_, ok := f.values[v]
	return ok
}

// Values returns the selected values sorted, or nil for All.
func (f Filter) Values() []string {
	if f.values == nil {
		return nil
	}
	out := make([]string, 0, len(f.values))
	for v := range f.values {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Selection is the user's choice of years, month labels and categories.
type Selection struct {
	Years      Filter
	Months     Filter
	Categories Filter
}

// Predicate reports whether a transaction is kept.
type Predicate func(core.Transaction) bool

func And(ps ...Predicate) Predicate {
	return func(t core.Transaction) bool {
		for _, p := range ps {
			if !p(t) {
				return false
			}
		}
		return true
	}
}

func Not(p Predicate) Predicate {
	return func(t core.Transaction) bool { return !p(t) }
}

func YearIn(f Filter) Predicate {
	return func(t core.Transaction) bool { return f.Contains(t.Year) }
}

// MonthIn matches on the month label, so unrecognized labels can be
// selected too.
func MonthIn(f Filter) Predicate {
	return func(t core.Transaction) bool { return f.Contains(t.MonthLabel) }
}

func CategoryIn(f Filter) Predicate {
	return func(t core.Transaction) bool { return f.Contains(t.Category) }
}

func IsIncome(t core.Transaction) bool { return t.IsIncome() }

func InPeriod(p Period) Predicate {
	return func(t core.Transaction) bool { return t.Year == p.Year && t.Month == p.Month }
}

func KnownMonth(t core.Transaction) bool { return t.Month.Valid() }

// Predicate combines the three dimensions.
func (s Selection) Predicate() Predicate {
	return And(YearIn(s.Years), MonthIn(s.Months), CategoryIn(s.Categories))
}

// Where returns the rows accepted by p, preserving order.
func Where(rows []core.Transaction, p Predicate) []core.Transaction {
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		if p(r) {
			out = append(out, r)
		}
	}
	return out
}
