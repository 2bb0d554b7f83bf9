package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/log"
	"bilancio/internal/session"
)

var errNoFile = errors.New("no file uploaded")

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "index.html", indexPage{
		SheetsEnabled: s.datasets.SheetsEnabled(),
		Engine:        s.datasets.EngineName(),
	})
}

// loaded sends the client to the new dataset.
func (s *Server) loaded(w http.ResponseWriter, r *http.Request, d *session.Dataset) {
	target := "/datasets/" + url.PathEscape(d.ID)
	if isHTMX(r) {
		NewHTMXResponse().
			Redirect(target).
			TriggerDatasetLoaded(d.ID, d.Table.Len()).
			Write(w)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleLoadFolder(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), loadTimeout)
	defer cancel()

	d, err := s.datasets.LoadFolder(ctx, sanitizeInput(r.PostForm.Get("path")))
	if err != nil {
		s.fail(w, r, err, log.OpLoad)
		return
	}
	s.loaded(w, r, d)
}

func (s *Server) handleLoadUpload(w http.ResponseWriter, r *http.Request) {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if !errors.As(err, &maxBytes) {
			BadRequestError("Seleziona un file CSV da caricare").Write(w)
			s.logger.WarnContext(r.Context(), "upload without file", log.FieldError, err)
			return
		}
		s.fail(w, r, err, log.OpLoad)
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), loadTimeout)
	defer cancel()

	d, err := s.datasets.LoadUpload(ctx, filepath.Base(header.Filename), file)
	if err != nil {
		s.fail(w, r, err, log.OpLoad)
		return
	}
	s.loaded(w, r, d)
}

func (s *Server) handleLoadSheets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), loadTimeout)
	defer cancel()

	d, err := s.datasets.LoadSheets(ctx)
	if err != nil {
		s.fail(w, r, err, log.OpLoad)
		return
	}
	s.loaded(w, r, d)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.datasets.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err, log.OpDelete)
		return
	}
	if isHTMX(r) {
		NewHTMXResponse().
			Redirect("/").
			TriggerDatasetDeleted(id).
			TriggerSuccessNotification("Dati rimossi").
			Write(w)
		return
	}
	if r.Method == http.MethodDelete {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
