package http

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"bilancio/internal/export"
	"bilancio/internal/log"
)

func attachment(w http.ResponseWriter, contentType, ext string) {
	name := "bilancio-" + time.Now().Format("20060102-150405") + ext
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
}

// handleExportCSV streams the filtered rows.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	d, _, report, err := s.analyze(r)
	if err != nil {
		s.fail(w, r, err, log.OpExport)
		return
	}
	attachment(w, export.ContentTypeCSV, ".csv")
	layout := export.Layout{ExtraColumns: d.Table.ExtraColumns, MultiYear: d.MultiYear()}
	if err := export.WriteCSV(w, layout, report.Rows); err != nil {
		s.structured.LogError(r.Context(), "csv export failed", err, log.ComponentExport, log.OpExport, nil)
	}
}

// handleExportXLSX builds the workbook in memory so a failure can still
// be reported with a proper status.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	d, _, report, err := s.analyze(r)
	if err != nil {
		s.fail(w, r, err, log.OpExport)
		return
	}
	var buf bytes.Buffer
	layout := export.Layout{ExtraColumns: d.Table.ExtraColumns, MultiYear: d.MultiYear()}
	if err := export.WriteXLSX(&buf, layout, report); err != nil {
		s.fail(w, r, err, log.OpExport)
		return
	}
	attachment(w, export.ContentTypeXLSX, ".xlsx")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
