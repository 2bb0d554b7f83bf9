package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bilancio/internal/log"
	"bilancio/internal/metrics"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
	appweb "bilancio/web"
)

const (
	loadTimeout    = 60 * time.Second
	analyzeTimeout = 10 * time.Second
)

type Config struct {
	Addr               string
	MaxUploadBytes     int64
	RateLimitPerMinute int
	// DashboardMaxRows caps the HTML table; zero shows every row.
	DashboardMaxRows int
	Logger           *log.Logger
}

type Server struct {
	http.Server
	templates  *template.Template
	datasets   *services.DatasetService
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	logger     *log.Logger
	structured *log.StructuredLogger
	maxUpload  int64
	maxRows    int

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and builds the router.
func NewServer(cfg Config, datasets *services.DatasetService) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		templates:  t,
		datasets:   datasets,
		detector:   security.NewDetector(logger),
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
		maxUpload:  cfg.MaxUploadBytes,
		maxRows:    cfg.DashboardMaxRows,
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Logger:            logger,
	})
	s.Handler = s.routes(static)
	return s, nil
}

func (s *Server) routes(static fs.FS) http.Handler {
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP, s.logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(tracer.Middleware)
	r.Use(log.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(middleware.Compress(5))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.With(security.StaticAssetMiddleware(3600)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Group(func(r chi.Router) {
		r.Use(security.NoStore)
		r.Get("/", s.handleIndex)

		r.Route("/datasets", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit))
				r.Post("/folder", s.handleLoadFolder)
				r.Post("/upload", s.handleLoadUpload)
				r.Post("/sheets", s.handleLoadSheets)
			})
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleDashboard)
				r.Delete("/", s.handleDelete)
				r.Post("/delete", s.handleDelete)
				r.Get("/metrics", s.handleMetricsPartial)
				r.Get("/rows", s.handleRowsPartial)
				r.Get("/export.csv", s.handleExportCSV)
				r.Get("/export.xlsx", s.handleExportXLSX)
			})
		})

		r.Route("/api/datasets/{id}", func(r chi.Router) {
			r.Get("/report", s.handleAPIReport)
			r.Get("/charts/{kind}", s.handleAPIChart)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Pagina non trovata").Write(w)
	})
	return r
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Troppe richieste, riprova tra poco.").Write(w)
}

// Shutdown stops the background goroutines and the HTTP server once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ready",
		"engine":   s.datasets.EngineName(),
		"datasets": s.datasets.Store().Len(),
		"sheets":   s.datasets.SheetsEnabled(),
	})
}
