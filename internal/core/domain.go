package core

import (
	"cmp"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// IncomeCategory is the only category counted as income; every other
// category is an expense.
const IncomeCategory = "Stipendio"

// Column names used by the source CSV files.
const (
	ColumnYear     = "anno"
	ColumnMonth    = "mese"
	ColumnCategory = "categoria"
	ColumnAmount   = "importo"
)

type (
	// RawRecord is a row as read from a source, before any type coercion.
	RawRecord struct {
		Year     string
		Month    string
		Category string
		Amount   string
		Extra    map[string]string
		Source   string // file or sheet the row was read from
		Line     int    // 1-based line in Source, header included
	}

	// RawTable is a set of raw records sharing the same optional columns.
	RawTable struct {
		ExtraColumns []string
		Records      []RawRecord
	}

	Transaction struct {
		Year       string
		Month      Month
		MonthLabel string // canonical label for known months, trimmed input otherwise
		Category   string
		Amount     decimal.Decimal
		Extra      map[string]string
	}

	// Table is a normalized, analysis-ready set of transactions.
	Table struct {
		ExtraColumns []string
		Rows         []Transaction
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrMissingColumn = errors.New("missing required column")
)

// IsIncome reports whether the transaction belongs to the income category.
func (t Transaction) IsIncome() bool {
	return t.Category == IncomeCategory
}

// Len returns the number of records.
func (r RawTable) Len() int {
	return len(r.Records)
}

// Concat joins raw tables in order. Optional columns are unioned in
// first-seen order.
func Concat(tables ...RawTable) RawTable {
	var out RawTable
	seen := map[string]struct{}{}
	for _, t := range tables {
		for _, c := range t.ExtraColumns {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out.ExtraColumns = append(out.ExtraColumns, c)
		}
		out.Records = append(out.Records, t.Records...)
	}
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasYears reports whether any row carries a year label (multi-year mode).
func (t *Table) HasYears() bool {
	for _, r := range t.Rows {
		if r.Year != "" {
			return true
		}
	}
	return false
}

// Years returns the distinct year labels in chronological order.
func (t *Table) Years() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range t.Rows {
		if _, ok := seen[r.Year]; ok {
			continue
		}
		seen[r.Year] = struct{}{}
		out = append(out, r.Year)
	}
	SortYears(out)
	return out
}

// MonthLabels returns the distinct month labels: known months in calendar
// order, followed by unrecognized labels in first-seen order.
func (t *Table) MonthLabels() []string {
	var present [13]bool
	var unknown []string
	seenUnknown := map[string]struct{}{}
	for _, r := range t.Rows {
		if r.Month.Valid() {
			present[r.Month] = true
			continue
		}
		if _, ok := seenUnknown[r.MonthLabel]; ok {
			continue
		}
		seenUnknown[r.MonthLabel] = struct{}{}
		unknown = append(unknown, r.MonthLabel)
	}
	var out []string
	for _, m := range Months() {
		if present[m] {
			out = append(out, m.String())
		}
	}
	return append(out, unknown...)
}

// Categories returns the distinct categories in first-seen order.
func (t *Table) Categories() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range t.Rows {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	return out
}

// CompareYears orders year labels in three groups: the empty label
// (single-file mode) first, then integer labels numerically, then every
// other label lexically.
func CompareYears(a, b string) int {
	if a == b {
		return 0
	}
	ai, aInt := yearNumber(a)
	bi, bInt := yearNumber(b)
	if ra, rb := yearGroup(a, aInt), yearGroup(b, bInt); ra != rb {
		return cmp.Compare(ra, rb)
	}
	if aInt && ai != bi {
		return cmp.Compare(ai, bi)
	}
	return strings.Compare(a, b)
}

func yearNumber(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return n, err == nil
}

func yearGroup(s string, isInt bool) int {
	switch {
	case strings.TrimSpace(s) == "":
		return 0
	case isInt:
		return 1
	default:
		return 2
	}
}

// SortYears sorts year labels in place using CompareYears.
func SortYears(years []string) {
	slices.SortStableFunc(years, CompareYears)
}
