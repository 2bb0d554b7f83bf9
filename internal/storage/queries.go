package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Every read query starts with the same three filter parameters: a JSON
// array of accepted years, month labels and categories, or NULL for all.
const selectionFilter = `
    (?1 IS NULL OR year IN (SELECT value FROM json_each(?1)))
AND (?2 IS NULL OR month_label IN (SELECT value FROM json_each(?2)))
AND (?3 IS NULL OR category IN (SELECT value FROM json_each(?3)))`

type FilterParams struct {
	Years      sql.NullString
	Months     sql.NullString
	Categories sql.NullString
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (p FilterParams) args(extra ...interface{}) []interface{} {
	return append([]interface{}{p.Years, p.Months, p.Categories}, extra...)
}

const insertTransaction = `-- name: InsertTransaction :exec
INSERT INTO transactions (id, year, year_rank, month, month_label, category, amount_micros)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type InsertTransactionParams struct {
	ID           int64
	Year         string
	YearRank     int64
	Month        int64
	MonthLabel   string
	Category     string
	AmountMicros int64
}

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		arg.ID, arg.Year, arg.YearRank, arg.Month, arg.MonthLabel, arg.Category, arg.AmountMicros)
	return err
}

const filteredIDs = `-- name: FilteredIDs :many
SELECT id FROM transactions
WHERE` + selectionFilter + `
ORDER BY id`

func (q *Queries) FilteredIDs(ctx context.Context, f FilterParams) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, filteredIDs, f.args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	return items, rows.Err()
}

const expenseByCategory = `-- name: ExpenseByCategory :many
SELECT category, SUM(amount_micros), COUNT(*) FROM transactions
WHERE` + selectionFilter + `
AND category <> ?4
GROUP BY category
ORDER BY category`

type CategoryRow struct {
	Category     string
	AmountMicros int64
	Count        int64
}

func (q *Queries) ExpenseByCategory(ctx context.Context, f FilterParams, incomeCategory string) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, expenseByCategory, f.args(incomeCategory)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRow
	for rows.Next() {
		var i CategoryRow
		if err := rows.Scan(&i.Category, &i.AmountMicros, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const totalsByMonth = `-- name: TotalsByMonth :many
SELECT month, SUM(amount_micros), COUNT(*) FROM transactions
WHERE` + selectionFilter + `
AND month > 0
AND (category = ?4) = ?5
GROUP BY month
ORDER BY month`

type MonthRow struct {
	Month        int64
	AmountMicros int64
	Count        int64
}

func (q *Queries) TotalsByMonth(ctx context.Context, f FilterParams, incomeCategory string, income bool) ([]MonthRow, error) {
	rows, err := q.db.QueryContext(ctx, totalsByMonth, f.args(incomeCategory, boolInt(income))...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthRow
	for rows.Next() {
		var i MonthRow
		if err := rows.Scan(&i.Month, &i.AmountMicros, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const yearMonthTotals = `-- name: YearMonthTotals :many
SELECT year, month, SUM(amount_micros) FROM transactions
WHERE` + selectionFilter + `
AND month > 0
GROUP BY year_rank, year, month
ORDER BY year_rank, month`

type YearMonthRow struct {
	Year         string
	Month        int64
	AmountMicros int64
}

func (q *Queries) YearMonthTotals(ctx context.Context, f FilterParams) ([]YearMonthRow, error) {
	rows, err := q.db.QueryContext(ctx, yearMonthTotals, f.args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []YearMonthRow
	for rows.Next() {
		var i YearMonthRow
		if err := rows.Scan(&i.Year, &i.Month, &i.AmountMicros); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const latestPeriod = `-- name: LatestPeriod :one
SELECT year, month FROM transactions
WHERE` + selectionFilter + `
AND month > 0
ORDER BY year_rank DESC, month DESC
LIMIT 1`

type PeriodRow struct {
	Year  string
	Month int64
}

// LatestPeriod returns sql.ErrNoRows when no row has a known month.
func (q *Queries) LatestPeriod(ctx context.Context, f FilterParams) (PeriodRow, error) {
	var i PeriodRow
	err := q.db.QueryRowContext(ctx, latestPeriod, f.args()...).Scan(&i.Year, &i.Month)
	return i, err
}

const periodTotals = `-- name: PeriodTotals :many
SELECT category = ?4 AS income, SUM(amount_micros), COUNT(*) FROM transactions
WHERE` + selectionFilter + `
AND month > 0
AND (year = ?5 AND month = ?6) = ?7
GROUP BY income`

type PeriodTotalsParams struct {
	IncomeCategory string
	Year           string
	Month          int64
	// Inside selects the period itself; false selects every other known
	// month.
	Inside bool
}

type SplitRow struct {
	Income       bool
	AmountMicros int64
	Count        int64
}

func (q *Queries) PeriodTotals(ctx context.Context, f FilterParams, arg PeriodTotalsParams) ([]SplitRow, error) {
	rows, err := q.db.QueryContext(ctx, periodTotals, f.args(arg.IncomeCategory, arg.Year, arg.Month, boolInt(arg.Inside))...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SplitRow
	for rows.Next() {
		var i SplitRow
		if err := rows.Scan(&i.Income, &i.AmountMicros, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const summaryTotals = `-- name: SummaryTotals :one
SELECT COALESCE(SUM(amount_micros), 0), COUNT(*) FROM transactions
WHERE` + selectionFilter

func (q *Queries) SummaryTotals(ctx context.Context, f FilterParams) (int64, int64, error) {
	var sum, count int64
	err := q.db.QueryRowContext(ctx, summaryTotals, f.args()...).Scan(&sum, &count)
	return sum, count, err
}
