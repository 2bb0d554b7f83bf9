package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/export"
	"bilancio/internal/services"
)

func writeCSV(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newTestServer serves two months of 2023 with one salary.
func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	writeCSV(t, filepath.Join(root, "2023", "Gennaio.csv"),
		"mese,categoria,importo\nGennaio,Stipendio,\"1500,00\"\nGennaio,Affitto,\"500,00\"\n")
	writeCSV(t, filepath.Join(root, "2023", "Febbraio.csv"),
		"mese,categoria,importo\nFebbraio,Affitto,\"520,00\"\n")

	datasets := services.NewDatasetService(services.Options{DataRoot: root})
	t.Cleanup(datasets.Close)

	srv, err := NewServer(Config{
		Addr:               ":0",
		MaxUploadBytes:     1 << 20,
		RateLimitPerMinute: 1000,
		DashboardMaxRows:   100,
	}, datasets)
	require.NoError(t, err)
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv, root
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// loadScenario loads the data root and returns the dataset page path.
func loadScenario(t *testing.T, srv *Server) string {
	t.Helper()
	rr := do(t, srv, postForm("/datasets/folder", url.Values{"path": {""}}))
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())
	loc := rr.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/datasets/"), loc)
	return loc
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Cartella per anni")
	assert.NotContains(t, rr.Body.String(), "Google Sheets", "sheets form needs a spreadsheet id")
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var ready map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ready))
	assert.Equal(t, "memory", ready["engine"])

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "bilancio_http_requests_total")

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLoadFolderAndDashboard(t *testing.T) {
	srv, _ := newTestServer(t)
	page := loadScenario(t, srv)

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, page, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Mese corrente: Febbraio 2023")
	assert.Contains(t, body, "Affitto")
	assert.Contains(t, body, "1020.00 €")
	assert.Contains(t, body, `name="anno"`, "year filter shown for folder data")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestLoadFolderHTMXRedirect(t *testing.T) {
	srv, _ := newTestServer(t)
	req := postForm("/datasets/folder", url.Values{"path": {"."}})
	req.Header.Set("HX-Request", "true")

	rr := do(t, srv, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("HX-Redirect"), "/datasets/"))
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "dataset:loaded")
}

func TestLoadFolderErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("missing folder", func(t *testing.T) {
		rr := do(t, srv, postForm("/datasets/folder", url.Values{"path": {"1999"}}))
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), msgNoData)
	})

	t.Run("outside data root", func(t *testing.T) {
		rr := do(t, srv, postForm("/datasets/folder", url.Values{"path": {"../elsewhere"}}))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("htmx gets a fragment", func(t *testing.T) {
		req := postForm("/datasets/folder", url.Values{"path": {"1999"}})
		req.Header.Set("HX-Request", "true")
		rr := do(t, srv, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), `role="alert"`)
		assert.Contains(t, rr.Header().Get("HX-Trigger"), "show-notification")
	})
}

func TestUpload(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "marzo.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("mese;categoria;importo;note\nMarzo;Spesa;\"12,50\";mercato\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/datasets/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := do(t, srv, req)
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, rr.Header().Get("Location"), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "mercato")
	assert.NotContains(t, body, `name="anno"`, "single files have no year filter")

	t.Run("missing file", func(t *testing.T) {
		rr := do(t, srv, postForm("/datasets/upload", url.Values{}))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSheetsDisabled(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, postForm("/datasets/sheets", url.Values{}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFilters(t *testing.T) {
	srv, _ := newTestServer(t)
	page := loadScenario(t, srv)
	id := strings.TrimPrefix(page, "/datasets/")

	report := func(t *testing.T, query string) reportJSON {
		t.Helper()
		rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/report?"+query, nil))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var out reportJSON
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
		return out
	}

	all := report(t, "")
	assert.Equal(t, 3, all.Report.RowCount)
	assert.Nil(t, all.Selection.Categories)
	assert.True(t, all.Dataset.MultiYear)

	rent := report(t, url.Values{"categoria": {"Affitto", ""}}.Encode())
	assert.Equal(t, 2, rent.Report.RowCount)
	assert.Equal(t, []string{"Affitto"}, rent.Selection.Categories)

	none := report(t, url.Values{"mese": {""}}.Encode())
	assert.Equal(t, 0, none.Report.RowCount)
	assert.True(t, none.Report.Empty)
	assert.Equal(t, []string{}, none.Selection.Months)

	t.Run("metrics partial for htmx", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, page+"/metrics?mese=Gennaio&mese=", nil)
		req.Header.Set("HX-Request", "true")
		rr := do(t, srv, req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Header().Get("HX-Trigger"), "filters-changed")
		assert.Contains(t, rr.Header().Get("HX-Push-Url"), "mese=Gennaio")
		assert.NotContains(t, rr.Body.String(), "<html")
	})

	t.Run("empty selection shows no data", func(t *testing.T) {
		rr := do(t, srv, httptest.NewRequest(http.MethodGet, page+"/rows?categoria=", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), msgNoData)
	})
}

func TestCharts(t *testing.T) {
	srv, _ := newTestServer(t)
	id := strings.TrimPrefix(loadScenario(t, srv), "/datasets/")

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/charts/categories", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"kind":"categories"`)

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/charts/pie", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/datasets/unknown/report", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
}

func TestExports(t *testing.T) {
	srv, _ := newTestServer(t)
	page := loadScenario(t, srv)

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, page+"/export.csv?categoria=Affitto&categoria=", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, export.ContentTypeCSV, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), ".csv")
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "anno,mese,categoria,importo", strings.TrimSpace(lines[0]))
	assert.NotContains(t, rr.Body.String(), "Stipendio")

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, page+"/export.xlsx", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, export.ContentTypeXLSX, rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestDelete(t *testing.T) {
	srv, _ := newTestServer(t)
	page := loadScenario(t, srv)

	rr := do(t, srv, httptest.NewRequest(http.MethodPost, page+"/delete", nil))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, page, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, httptest.NewRequest(http.MethodDelete, page, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
