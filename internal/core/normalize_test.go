package core

import (
	"errors"
	"testing"
)

func rawTable(records ...RawRecord) RawTable {
	return RawTable{Records: records}
}

func TestNormalize(t *testing.T) {
	raw := rawTable(
		RawRecord{Month: "Gennaio", Category: "Stipendio", Amount: "2000,00", Line: 2},
		RawRecord{Month: " Febbraio", Category: "Spesa", Amount: "45.5", Line: 3},
		RawRecord{Month: "Gen", Category: "Spesa", Amount: "10", Line: 4},
	)
	tbl, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", tbl.Len())
	}
	if tbl.Rows[0].Month != Gennaio || !tbl.Rows[0].IsIncome() {
		t.Fatalf("unexpected first row: %+v", tbl.Rows[0])
	}
	if tbl.Rows[1].Month != Febbraio || tbl.Rows[1].MonthLabel != "Febbraio" {
		t.Fatalf("expected trimmed Febbraio, got %+v", tbl.Rows[1])
	}
	if tbl.Rows[2].Month != MonthUnknown || tbl.Rows[2].MonthLabel != "Gen" {
		t.Fatalf("expected unknown month to keep its label, got %+v", tbl.Rows[2])
	}
	if tbl.Rows[0].Amount.String() != "2000" {
		t.Fatalf("expected 2000, got %s", tbl.Rows[0].Amount)
	}
}

func TestNormalizeRejectsBadAmount(t *testing.T) {
	raw := rawTable(
		RawRecord{Month: "Gennaio", Category: "Spesa", Amount: "10", Source: "2023/a.csv", Line: 2},
		RawRecord{Month: "Gennaio", Category: "Spesa", Amount: "dieci", Source: "2023/a.csv", Line: 3},
	)
	_, err := Normalize(raw)
	if err == nil {
		t.Fatalf("expected error")
	}
	var rowErr *RowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected RowError, got %T", err)
	}
	if rowErr.Line != 3 || rowErr.Column != ColumnAmount || rowErr.Source != "2023/a.csv" {
		t.Fatalf("unexpected row error: %+v", rowErr)
	}
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount in chain")
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw := RawTable{
		ExtraColumns: []string{"note"},
		Records: []RawRecord{
			{Year: "2023", Month: "Marzo", Category: "Casa", Amount: "12,30", Extra: map[string]string{"note": "luce"}},
			{Year: "2023", Month: "Boh", Category: "Stipendio", Amount: "1500"},
		},
	}
	once, err := Normalize(raw)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := Normalize(once.Raw())
	if err != nil {
		t.Fatal(err)
	}
	if len(once.Rows) != len(twice.Rows) {
		t.Fatalf("row count changed: %d vs %d", len(once.Rows), len(twice.Rows))
	}
	for i := range once.Rows {
		a, b := once.Rows[i], twice.Rows[i]
		if a.Year != b.Year || a.Month != b.Month || a.MonthLabel != b.MonthLabel ||
			a.Category != b.Category || !a.Amount.Equal(b.Amount) || a.Extra["note"] != b.Extra["note"] {
			t.Fatalf("row %d changed: %+v vs %+v", i, a, b)
		}
	}
}
