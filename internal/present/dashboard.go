package present

import (
	"bilancio/internal/analytics"
	"bilancio/internal/core"
)

// Chart kinds served by the API.
const (
	ChartCategories     = "categories"
	ChartExpenseByMonth = "expense-by-month"
	ChartIncomeByMonth  = "income-by-month"
	ChartTrend          = "trend"
)

type Row struct {
	Year     string   `json:"year,omitempty"`
	Month    string   `json:"month"`
	Category string   `json:"category"`
	Amount   string   `json:"amount"`
	Income   bool     `json:"income"`
	Extra    []string `json:"extra,omitempty"`
}

// Dashboard is the complete view model of one report.
type Dashboard struct {
	Cards          Cards    `json:"cards"`
	Summary        []Metric `json:"summary"`
	Categories     []Slice  `json:"categories"`
	ExpenseByMonth Series   `json:"expense_by_month"`
	IncomeByMonth  Series   `json:"income_by_month"`
	Trend          []Series `json:"trend"`
	Columns        []string `json:"columns"`
	Rows           []Row    `json:"rows"`
	RowCount       int      `json:"row_count"`
	Truncated      bool     `json:"truncated"`
	MultiYear      bool     `json:"multi_year"`
	Empty          bool     `json:"empty"`
}

// Options shape the tabular part of a dashboard.
type Options struct {
	ExtraColumns []string
	MultiYear    bool
	// MaxRows caps the rows copied into the view; zero keeps all.
	MaxRows int
}

func NewDashboard(r analytics.Report, opts Options) Dashboard {
	d := Dashboard{
		Cards:          MetricCards(r.Current),
		Summary:        SummaryCards(r.Summary),
		Categories:     CategorySlices(r.ExpenseByCategory),
		ExpenseByMonth: MonthSeries("Spese", r.ExpenseByMonth),
		IncomeByMonth:  MonthSeries("Entrate", r.IncomeByMonth),
		Trend:          TrendSeries(r.Trend),
		RowCount:       len(r.Rows),
		MultiYear:      opts.MultiYear,
		Empty:          r.Empty(),
	}
	d.Columns = Columns(opts.ExtraColumns, opts.MultiYear)

	rows := r.Rows
	if opts.MaxRows > 0 && len(rows) > opts.MaxRows {
		rows = rows[:opts.MaxRows]
		d.Truncated = true
	}
	d.Rows = make([]Row, 0, len(rows))
	for _, t := range rows {
		d.Rows = append(d.Rows, NewRow(t, opts.ExtraColumns))
	}
	return d
}

// Columns lists the table headers in display order.
func Columns(extra []string, multiYear bool) []string {
	var cols []string
	if multiYear {
		cols = append(cols, core.ColumnYear)
	}
	cols = append(cols, core.ColumnMonth, core.ColumnCategory, core.ColumnAmount)
	return append(cols, extra...)
}

func NewRow(t core.Transaction, extra []string) Row {
	r := Row{
		Year:     t.Year,
		Month:    t.MonthLabel,
		Category: t.Category,
		Amount:   Money(t.Amount),
		Income:   t.IsIncome(),
	}
	for _, c := range extra {
		r.Extra = append(r.Extra, t.Extra[c])
	}
	return r
}

// Chart returns the chart of the given kind.
func (d Dashboard) Chart(kind string) (any, bool) {
	switch kind {
	case ChartCategories:
		return d.Categories, true
	case ChartExpenseByMonth:
		return d.ExpenseByMonth, true
	case ChartIncomeByMonth:
		return d.IncomeByMonth, true
	case ChartTrend:
		return d.Trend, true
	default:
		return nil, false
	}
}
