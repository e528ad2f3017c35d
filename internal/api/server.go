package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yshk0402/word-merger-app/internal/config"
	"github.com/yshk0402/word-merger-app/internal/pipeline"
	"github.com/yshk0402/word-merger-app/internal/preview"
)

// Server is the HTTP API for merging and previewing Word documents.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	previews     *preview.Cache
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, previews *preview.Cache, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		previews:     previews,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// API endpoints; bearer auth only when a key is configured.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/merge", s.handleMerge)
		r.Post("/api/merge/async", s.handleMergeAsync)
		r.Get("/api/merge/{jobID}/status", s.handleMergeStatus)
		r.Get("/api/merge/{jobID}/result", s.handleMergeResult)

		r.Post("/api/preview", s.handlePreview)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
