package core

import (
	"fmt"
	"strings"
)

// RowError describes a record that could not be normalized.
type RowError struct {
	Source string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	loc := e.Source
	if loc == "" {
		loc = "input"
	}
	return fmt.Sprintf("%s:%d: column %q value %q: %v", loc, e.Line, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// NormalizeRecord coerces a raw record into a transaction. Unknown month
// labels are kept with MonthUnknown; a non-numeric amount fails the record.
func NormalizeRecord(r RawRecord) (Transaction, error) {
	amount, err := ParseAmount(r.Amount)
	if err != nil {
		return Transaction{}, &RowError{
			Source: r.Source,
			Line:   r.Line,
			Column: ColumnAmount,
			Value:  r.Amount,
			Err:    err,
		}
	}
	label := strings.TrimSpace(r.Month)
	month, ok := ParseMonth(label)
	if ok {
		label = month.String()
	}
	return Transaction{
		Year:       r.Year,
		Month:      month,
		MonthLabel: label,
		Category:   r.Category,
		Amount:     amount,
		Extra:      r.Extra,
	}, nil
}

// Normalize converts a whole raw table. The first bad record aborts the
// conversion; row order is preserved.
func Normalize(raw RawTable) (*Table, error) {
	t := &Table{
		ExtraColumns: append([]string(nil), raw.ExtraColumns...),
		Rows:         make([]Transaction, 0, len(raw.Records)),
	}
	for _, r := range raw.Records {
		tx, err := NormalizeRecord(r)
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, tx)
	}
	return t, nil
}

// Raw converts the table back into raw records, amounts rendered with a dot.
func (t *Table) Raw() RawTable {
	out := RawTable{ExtraColumns: append([]string(nil), t.ExtraColumns...)}
	for i, tx := range t.Rows {
		out.Records = append(out.Records, RawRecord{
			Year:     tx.Year,
			Month:    tx.MonthLabel,
			Category: tx.Category,
			Amount:   FormatAmount(tx.Amount),
			Extra:    tx.Extra,
			Line:     i + 2,
		})
	}
	return out
}
