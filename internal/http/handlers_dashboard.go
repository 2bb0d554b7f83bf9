package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/analytics"
	"bilancio/internal/log"
	"bilancio/internal/session"
)

// analyze runs the request's selection against the dataset in the URL.
func (s *Server) analyze(r *http.Request) (*session.Dataset, analytics.Selection, analytics.Report, error) {
	ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
	defer cancel()

	sel := ParseSelection(r.URL.Query())
	d, report, err := s.datasets.Analyze(ctx, chi.URLParam(r, "id"), sel)
	return d, sel, report, err
}

// handleDashboard renders the full dataset page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, sel, report, err := s.analyze(r)
	if err != nil {
		s.fail(w, r, err, log.OpAnalyze)
		return
	}
	s.render(w, r, "dataset.html", s.newDashboardPage(d, sel, report))
}

// handleMetricsPartial returns the cards and charts for the current
// filters and tells the table to follow.
func (s *Server) handleMetricsPartial(w http.ResponseWriter, r *http.Request) {
	d, sel, report, err := s.analyze(r)
	if err != nil {
		s.fail(w, r, err, log.OpAnalyze)
		return
	}
	if isHTMX(r) {
		w.Header().Set("HX-Trigger", `{"filters-changed":{}}`)
		w.Header().Set("HX-Push-Url", string(datasetLinks(d.ID, sel).Page))
	}
	s.render(w, r, "metrics", s.newDashboardPage(d, sel, report))
}

func (s *Server) handleRowsPartial(w http.ResponseWriter, r *http.Request) {
	d, sel, report, err := s.analyze(r)
	if err != nil {
		s.fail(w, r, err, log.OpAnalyze)
		return
	}
	s.render(w, r, "rows", s.newDashboardPage(d, sel, report))
}
