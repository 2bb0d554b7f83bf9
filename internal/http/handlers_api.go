package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/analytics"
	"bilancio/internal/log"
	"bilancio/internal/present"
)

type selectionJSON struct {
	Years      []string `json:"years"`
	Months     []string `json:"months"`
	Categories []string `json:"categories"`
}

// newSelectionJSON encodes "all" as null and "none" as an empty list.
func newSelectionJSON(sel analytics.Selection) selectionJSON {
	return selectionJSON{
		Years:      sel.Years.Values(),
		Months:     sel.Months.Values(),
		Categories: sel.Categories.Values(),
	}
}

type datasetJSON struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Label     string    `json:"label"`
	Rows      int       `json:"rows"`
	Years     []string  `json:"years"`
	MultiYear bool      `json:"multi_year"`
	LoadedAt  time.Time `json:"loaded_at"`
}

type reportJSON struct {
	Dataset   datasetJSON       `json:"dataset"`
	Selection selectionJSON     `json:"selection"`
	Report    present.Dashboard `json:"report"`
}

func (s *Server) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	d, sel, report, err := s.analyze(r)
	if err != nil {
		s.failJSON(w, r, err, log.OpAnalyze)
		return
	}
	writeJSON(w, http.StatusOK, reportJSON{
		Dataset: datasetJSON{
			ID:        d.ID,
			Source:    d.Source,
			Label:     d.Label,
			Rows:      d.Table.Len(),
			Years:     d.Table.Years(),
			MultiYear: d.MultiYear(),
			LoadedAt:  d.LoadedAt,
		},
		Selection: newSelectionJSON(sel),
		Report: present.NewDashboard(report, present.Options{
			ExtraColumns: d.Table.ExtraColumns,
			MultiYear:    d.MultiYear(),
		}),
	})
}

func (s *Server) handleAPIChart(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	d, _, report, err := s.analyze(r)
	if err != nil {
		s.failJSON(w, r, err, log.OpAnalyze)
		return
	}
	chart, ok := present.NewDashboard(report, present.Options{MultiYear: d.MultiYear()}).Chart(kind)
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "Grafico sconosciuto: " + kind})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "data": chart})
}
