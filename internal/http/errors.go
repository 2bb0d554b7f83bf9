package http

import (
	"context"
	"errors"
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/loader"
	"bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/session"
)

const msgNoData = "Nessun dato trovato"

// userError maps an error to a status and an Italian message safe to show.
func userError(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, loader.ErrNoData):
		return http.StatusNotFound, msgNoData
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "Dataset non trovato o scaduto, ricarica i dati"
	case errors.Is(err, services.ErrOutsideRoot):
		return http.StatusBadRequest, "La cartella deve trovarsi dentro la cartella dati"
	case errors.Is(err, services.ErrSheetsDisabled):
		return http.StatusNotFound, "Google Sheets non è configurato"
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "Importo non valido in " + err.Error()
	case errors.Is(err, core.ErrMissingColumn):
		return http.StatusUnprocessableEntity, "Colonna obbligatoria mancante: " + err.Error()
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "File troppo grande"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Operazione scaduta, riprova"
	default:
		return http.StatusInternalServerError, "Errore durante l'elaborazione dei dati"
	}
}

// fail renders err for the kind of client that sent r: an error fragment
// for htmx, the landing page otherwise.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	code, msg := userError(err)
	if code >= http.StatusInternalServerError {
		s.structured.LogError(r.Context(), "request failed", err, s.logger.Component(), op, nil)
	} else {
		s.logger.WarnContext(r.Context(), "request rejected", log.FieldError, err, log.FieldStatusCode, code)
	}

	if isHTMX(r) {
		ErrorResponse(code, msg).TriggerErrorNotification(msg).Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	s.render(w, r, "index.html", indexPage{
		SheetsEnabled: s.datasets.SheetsEnabled(),
		Engine:        s.datasets.EngineName(),
		Error:         msg,
	})
}

// failJSON is fail for /api routes.
func (s *Server) failJSON(w http.ResponseWriter, r *http.Request, err error, op string) {
	code, msg := userError(err)
	if code >= http.StatusInternalServerError {
		s.structured.LogError(r.Context(), "api request failed", err, s.logger.Component(), op, nil)
	}
	writeJSON(w, code, apiError{Error: msg})
}

// render executes a template. Headers may already be sent, so a failure
// is only logged.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.structured.LogError(r.Context(), "template execution failed", err, log.ComponentTemplate, log.OpRender,
			log.LogFields{"template": name})
	}
}
