package analytics

import "bilancio/internal/core"

// Report is everything the dashboard shows for one selection.
type Report struct {
	Rows              []core.Transaction
	ExpenseByCategory []CategoryAmount
	ExpenseByMonth    []MonthAmount
	IncomeByMonth     []MonthAmount
	Trend             Pivot
	Current           CurrentMetrics
	Summary           Summary
}

func (r Report) Empty() bool { return len(r.Rows) == 0 }

// BuildReport aggregates rows that have already been filtered.
func BuildReport(rows []core.Transaction) Report {
	expense := Where(rows, Not(IsIncome))
	income := Where(rows, IsIncome)
	return Report{
		Rows:              rows,
		ExpenseByCategory: ExpensesByCategory(rows),
		ExpenseByMonth:    ByMonth(expense),
		IncomeByMonth:     ByMonth(income),
		Trend:             YearMonthTrend(rows),
		Current:           Current(rows),
		Summary:           Summarize(rows),
	}
}
