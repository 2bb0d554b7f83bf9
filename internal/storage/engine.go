// Package storage runs the dashboard aggregations inside an in-memory
// SQLite database, one database per prepared dataset.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"bilancio/internal/analytics"
	"bilancio/internal/core"
	"bilancio/internal/log"
)

// Amounts are stored as integer millionths of a unit.
const amountScale = 6

// toMicros converts d exactly. Amounts with more than amountScale
// decimals or outside the int64 range fail with core.ErrInvalidAmount.
func toMicros(d decimal.Decimal) (int64, error) {
	shifted := d.Shift(amountScale)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more than %d decimals", core.ErrInvalidAmount, d, amountScale)
	}
	n := shifted.BigInt()
	if !n.IsInt64() {
		return 0, fmt.Errorf("%w: %s is out of range", core.ErrInvalidAmount, d)
	}
	return n.Int64(), nil
}

func fromMicros(m int64) decimal.Decimal {
	return decimal.New(m, -amountScale)
}

// Engine implements analytics.Engine on SQLite.
type Engine struct {
	logger *log.Logger
}

func NewEngine(logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Engine{logger: logger.WithComponent(log.ComponentStorage)}
}

func (e *Engine) Name() string { return "sqlite" }

func (e *Engine) Prepare(ctx context.Context, table *core.Table) (analytics.Analyzer, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// An in-memory database lives as long as its connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := insertTable(ctx, db, table); err != nil {
		db.Close()
		return nil, err
	}
	e.logger.DebugContext(ctx, "dataset prepared", log.FieldRows, table.Len(), log.FieldEngine, e.Name())
	return &Analyzer{db: db, q: New(db), table: table}, nil
}

func insertTable(ctx context.Context, db *sql.DB, table *core.Table) error {
	ranks := map[string]int64{}
	for i, y := range table.Years() {
		ranks[y] = int64(i)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	q := New(db).WithTx(tx)
	for i, r := range table.Rows {
		micros, err := toMicros(r.Amount)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("row %d (%s %s, %s): %w", i+1, r.MonthLabel, r.Year, r.Category, err)
		}
		err = q.InsertTransaction(ctx, InsertTransactionParams{
			ID:           int64(i + 1),
			Year:         r.Year,
			YearRank:     ranks[r.Year],
			Month:        int64(r.Month),
			MonthLabel:   r.MonthLabel,
			Category:     r.Category,
			AmountMicros: micros,
		})
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// Analyzer answers selections with SQL aggregates. Row ids are table
// positions plus one, so filtered rows are read back from the table.
type Analyzer struct {
	db    *sql.DB
	q     *Queries
	table *core.Table
}

func (a *Analyzer) Close() error {
	return a.db.Close()
}

func filterParam(f analytics.Filter) (sql.NullString, error) {
	if f.IsAll() {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(f.Values())
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func filterParams(sel analytics.Selection) (FilterParams, error) {
	var (
		p   FilterParams
		err error
	)
	if p.Years, err = filterParam(sel.Years); err != nil {
		return p, err
	}
	if p.Months, err = filterParam(sel.Months); err != nil {
		return p, err
	}
	if p.Categories, err = filterParam(sel.Categories); err != nil {
		return p, err
	}
	return p, nil
}

func (a *Analyzer) Analyze(ctx context.Context, sel analytics.Selection) (analytics.Report, error) {
	f, err := filterParams(sel)
	if err != nil {
		return analytics.Report{}, fmt.Errorf("encode selection: %w", err)
	}

	var report analytics.Report
	if report.Rows, err = a.rows(ctx, f); err != nil {
		return analytics.Report{}, fmt.Errorf("filter rows: %w", err)
	}
	if report.ExpenseByCategory, err = a.categories(ctx, f); err != nil {
		return analytics.Report{}, fmt.Errorf("category totals: %w", err)
	}
	if report.ExpenseByMonth, err = a.months(ctx, f, false); err != nil {
		return analytics.Report{}, fmt.Errorf("monthly expense: %w", err)
	}
	if report.IncomeByMonth, err = a.months(ctx, f, true); err != nil {
		return analytics.Report{}, fmt.Errorf("monthly income: %w", err)
	}
	if report.Trend, err = a.trend(ctx, f); err != nil {
		return analytics.Report{}, fmt.Errorf("trend: %w", err)
	}
	if report.Current, err = a.current(ctx, f); err != nil {
		return analytics.Report{}, fmt.Errorf("current period: %w", err)
	}
	sum, count, err := a.q.SummaryTotals(ctx, f)
	if err != nil {
		return analytics.Report{}, fmt.Errorf("summary: %w", err)
	}
	report.Summary = analytics.NewSummary(fromMicros(sum), int(count))
	return report, nil
}

func (a *Analyzer) rows(ctx context.Context, f FilterParams) ([]core.Transaction, error) {
	ids, err := a.q.FilteredIDs(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.table.Rows[id-1])
	}
	return out, nil
}

func (a *Analyzer) categories(ctx context.Context, f FilterParams) ([]analytics.CategoryAmount, error) {
	items, err := a.q.ExpenseByCategory(ctx, f, core.IncomeCategory)
	if err != nil {
		return nil, err
	}
	var out []analytics.CategoryAmount
	for _, i := range items {
		out = append(out, analytics.CategoryAmount{
			Category: i.Category,
			Amount:   fromMicros(i.AmountMicros),
			Count:    int(i.Count),
		})
	}
	return out, nil
}

func (a *Analyzer) months(ctx context.Context, f FilterParams, income bool) ([]analytics.MonthAmount, error) {
	items, err := a.q.TotalsByMonth(ctx, f, core.IncomeCategory, income)
	if err != nil {
		return nil, err
	}
	var out []analytics.MonthAmount
	for _, i := range items {
		out = append(out, analytics.MonthAmount{
			Month:  core.Month(i.Month),
			Amount: fromMicros(i.AmountMicros),
			Count:  int(i.Count),
		})
	}
	return out, nil
}

func (a *Analyzer) trend(ctx context.Context, f FilterParams) (analytics.Pivot, error) {
	items, err := a.q.YearMonthTotals(ctx, f)
	if err != nil {
		return analytics.Pivot{}, err
	}
	p := analytics.Pivot{Cells: map[string]map[core.Month]decimal.Decimal{}}
	var seen [13]bool
	for _, i := range items {
		row, ok := p.Cells[i.Year]
		if !ok {
			row = map[core.Month]decimal.Decimal{}
			p.Cells[i.Year] = row
			p.Years = append(p.Years, i.Year)
		}
		m := core.Month(i.Month)
		row[m] = fromMicros(i.AmountMicros)
		seen[m] = true
	}
	for _, m := range core.Months() {
		if seen[m] {
			p.Months = append(p.Months, m)
		}
	}
	return p, nil
}

func (a *Analyzer) current(ctx context.Context, f FilterParams) (analytics.CurrentMetrics, error) {
	latest, err := a.q.LatestPeriod(ctx, f)
	if errors.Is(err, sql.ErrNoRows) {
		return analytics.Current(nil), nil
	}
	if err != nil {
		return analytics.CurrentMetrics{}, err
	}
	params := PeriodTotalsParams{
		IncomeCategory: core.IncomeCategory,
		Year:           latest.Year,
		Month:          latest.Month,
		Inside:         true,
	}
	inside, err := a.q.PeriodTotals(ctx, f, params)
	if err != nil {
		return analytics.CurrentMetrics{}, err
	}
	params.Inside = false
	outside, err := a.q.PeriodTotals(ctx, f, params)
	if err != nil {
		return analytics.CurrentMetrics{}, err
	}
	period := analytics.Period{Year: latest.Year, Month: core.Month(latest.Month)}
	return analytics.NewCurrentMetrics(period, splitTotals(inside), splitTotals(outside)), nil
}

func splitTotals(items []SplitRow) analytics.Totals {
	t := analytics.Totals{ExpenseSum: decimal.Zero, IncomeSum: decimal.Zero}
	for _, i := range items {
		if i.Income {
			t.IncomeSum, t.IncomeCount = fromMicros(i.AmountMicros), int(i.Count)
			continue
		}
		t.ExpenseSum, t.ExpenseCount = fromMicros(i.AmountMicros), int(i.Count)
	}
	return t
}
