// Package export writes filtered transactions as CSV or as an Excel
// workbook.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"bilancio/internal/analytics"
	"bilancio/internal/core"
	"bilancio/internal/present"
)

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheetRows       = "Transazioni"
	sheetCategories = "Categorie"
)

// Layout describes the columns to write.
type Layout struct {
	ExtraColumns []string
	MultiYear    bool
}

func (l Layout) header() []string {
	return present.Columns(l.ExtraColumns, l.MultiYear)
}

func (l Layout) record(t core.Transaction) []string {
	var rec []string
	if l.MultiYear {
		rec = append(rec, t.Year)
	}
	rec = append(rec, t.MonthLabel, t.Category, core.FormatAmount(t.Amount))
	for _, c := range l.ExtraColumns {
		rec = append(rec, t.Extra[c])
	}
	return rec
}

// WriteCSV writes rows with a header in the format the loader reads back.
func WriteCSV(w io.Writer, layout Layout, rows []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(layout.header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, t := range rows {
		if err := cw.Write(layout.record(t)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a workbook with the filtered rows and the expense
// totals per category.
func WriteXLSX(w io.Writer, layout Layout, report analytics.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetRows); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#2D3436"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("amount style: %w", err)
	}

	header := layout.header()
	if err := writeRow(f, sheetRows, 1, stringsToCells(header)); err != nil {
		return err
	}
	if err := styleRow(f, sheetRows, 1, len(header), headerStyle); err != nil {
		return err
	}
	amountCol := 3
	if layout.MultiYear {
		amountCol = 4
	}
	for i, t := range report.Rows {
		cells := stringsToCells(layout.record(t))
		cells[amountCol-1] = t.Amount.InexactFloat64()
		if err := writeRow(f, sheetRows, i+2, cells); err != nil {
			return err
		}
	}
	if len(report.Rows) > 0 {
		if err := styleColumn(f, sheetRows, amountCol, 2, len(report.Rows)+1, amountStyle); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(sheetCategories); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := writeRow(f, sheetCategories, 1, []interface{}{core.ColumnCategory, core.ColumnAmount, "quota"}); err != nil {
		return err
	}
	if err := styleRow(f, sheetCategories, 1, 3, headerStyle); err != nil {
		return err
	}
	for i, s := range present.CategorySlices(report.ExpenseByCategory) {
		if err := writeRow(f, sheetCategories, i+2, []interface{}{s.Label, s.Value, s.Percent}); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func stringsToCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}

func styleColumn(f *excelize.File, sheet string, col, fromRow, toRow, style int) error {
	first, err := excelize.CoordinatesToCellName(col, fromRow)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(col, toRow)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}
