// Package memory is an in-process spreadsheet used for development and
// tests in place of Google Sheets.
package memory

import (
	"context"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/sheets"
)

type Spreadsheet struct {
	mu   sync.Mutex
	ref  string
	tabs []sheets.Tab
}

var _ sheets.Reader = (*Spreadsheet)(nil)

func New(ref string, tabs ...sheets.Tab) *Spreadsheet {
	return &Spreadsheet{ref: ref, tabs: tabs}
}

// SetTab replaces the tab with the same title or appends a new one.
func (s *Spreadsheet) SetTab(title string, cells [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tabs {
		if s.tabs[i].Title == title {
			s.tabs[i].Cells = cells
			return
		}
	}
	s.tabs = append(s.tabs, sheets.Tab{Title: title, Cells: cells})
}

func (s *Spreadsheet) Load(ctx context.Context) (core.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return core.RawTable{}, err
	}
	s.mu.Lock()
	tabs := append([]sheets.Tab(nil), s.tabs...)
	s.mu.Unlock()
	return sheets.FromTabs(tabs)
}

func (s *Spreadsheet) Ref() string { return s.ref }
