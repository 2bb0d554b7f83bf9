package analytics

import (
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// Period identifies one month of one year. Year is empty for a single
// uploaded file.
type Period struct {
	Year  string
	Month core.Month
}

func (p Period) String() string {
	if p.Year == "" {
		return p.Month.String()
	}
	return p.Month.String() + " " + p.Year
}

// After reports whether p is chronologically later than o.
func (p Period) After(o Period) bool {
	if c := core.CompareYears(p.Year, o.Year); c != 0 {
		return c > 0
	}
	return p.Month > o.Month
}

// LatestPeriod returns the latest (year, month) among rows with a known
// month.
func LatestPeriod(rows []core.Transaction) (Period, bool) {
	var (
		latest Period
		found  bool
	)
	for _, r := range rows {
		if !r.Month.Valid() {
			continue
		}
		p := Period{Year: r.Year, Month: r.Month}
		if !found || p.After(latest) {
			latest, found = p, true
		}
	}
	return latest, found
}

// Baseline is the per-transaction mean of the months before the current
// period. Has* is false when no such transaction exists.
type Baseline struct {
	MeanExpense decimal.Decimal
	MeanIncome  decimal.Decimal
	HasExpense  bool
	HasIncome   bool
}

func (b Baseline) MeanSavings() decimal.Decimal {
	return b.MeanIncome.Sub(b.MeanExpense)
}

type CurrentMetrics struct {
	Period    Period
	HasPeriod bool

	Expense      decimal.Decimal
	Income       decimal.Decimal
	ExpenseCount int
	IncomeCount  int

	Baseline Baseline

	ExpenseDelta decimal.Decimal
	IncomeDelta  decimal.Decimal
	SavingsDelta decimal.Decimal
}

func (c CurrentMetrics) Savings() decimal.Decimal {
	return c.Income.Sub(c.Expense)
}

// Totals carry the sums and counts needed to derive CurrentMetrics. They
// let engines that aggregate elsewhere share the arithmetic below.
type Totals struct {
	ExpenseSum   decimal.Decimal
	ExpenseCount int
	IncomeSum    decimal.Decimal
	IncomeCount  int
}

func totalsOf(rows []core.Transaction) Totals {
	t := Totals{ExpenseSum: decimal.Zero, IncomeSum: decimal.Zero}
	for _, r := range rows {
		if r.IsIncome() {
			t.IncomeSum = t.IncomeSum.Add(r.Amount)
			t.IncomeCount++
			continue
		}
		t.ExpenseSum = t.ExpenseSum.Add(r.Amount)
		t.ExpenseCount++
	}
	return t
}

// NewCurrentMetrics derives the metric cards from the totals of the
// current period and of the baseline.
func NewCurrentMetrics(period Period, current, baseline Totals) CurrentMetrics {
	c := CurrentMetrics{
		Period:       period,
		HasPeriod:    true,
		Expense:      current.ExpenseSum,
		Income:       current.IncomeSum,
		ExpenseCount: current.ExpenseCount,
		IncomeCount:  current.IncomeCount,
	}
	c.Baseline.MeanExpense, c.Baseline.HasExpense = meanOf(baseline.ExpenseSum, baseline.ExpenseCount)
	c.Baseline.MeanIncome, c.Baseline.HasIncome = meanOf(baseline.IncomeSum, baseline.IncomeCount)
	c.ExpenseDelta = c.Expense.Sub(c.Baseline.MeanExpense)
	c.IncomeDelta = c.Income.Sub(c.Baseline.MeanIncome)
	c.SavingsDelta = c.Savings().Sub(c.Baseline.MeanSavings())
	return c
}

// Current computes the metric cards over already filtered rows. Without
// any known month every figure is zero and HasPeriod is false.
func Current(rows []core.Transaction) CurrentMetrics {
	period, ok := LatestPeriod(rows)
	if !ok {
		return CurrentMetrics{
			Expense:      decimal.Zero,
			Income:       decimal.Zero,
			ExpenseDelta: decimal.Zero,
			IncomeDelta:  decimal.Zero,
			SavingsDelta: decimal.Zero,
			Baseline:     Baseline{MeanExpense: decimal.Zero, MeanIncome: decimal.Zero},
		}
	}
	inPeriod := InPeriod(period)
	current := totalsOf(Where(rows, inPeriod))
	baseline := totalsOf(Where(rows, And(KnownMonth, Not(inPeriod))))
	return NewCurrentMetrics(period, current, baseline)
}
