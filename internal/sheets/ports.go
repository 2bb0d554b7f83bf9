// Package sheets defines the spreadsheet source of transactions: one tab
// per year, each laid out like a year CSV file.
package sheets

import (
	"context"
	"regexp"

	"bilancio/internal/core"
	"bilancio/internal/loader"
)

// Reader loads every year tab of a spreadsheet.
type Reader interface {
	Load(ctx context.Context) (core.RawTable, error)
	// Ref identifies the spreadsheet in logs and dataset labels.
	Ref() string
}

var yearTitle = regexp.MustCompile(`^\s*(\d{4})\b`)

// YearFromTitle extracts the year a tab title starts with, for instance
// "2023" or "2023 Spese".
func YearFromTitle(title string) (string, bool) {
	m := yearTitle.FindStringSubmatch(title)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Tab is the cell content of one sheet, header row first.
type Tab struct {
	Title string
	Cells [][]string
}

// FromTabs maps year tabs into a raw table. Tabs without a leading year
// are skipped and empty tabs contribute nothing.
func FromTabs(tabs []Tab) (core.RawTable, error) {
	var tables []core.RawTable
	for _, tab := range tabs {
		year, ok := YearFromTitle(tab.Title)
		if !ok || len(tab.Cells) == 0 {
			continue
		}
		t, err := loader.FromRecords(tab.Cells, year, tab.Title)
		if err != nil {
			return core.RawTable{}, err
		}
		tables = append(tables, t)
	}
	return core.Concat(tables...), nil
}
