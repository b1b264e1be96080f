package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/mathdocx/internal/analysis"
	"github.com/dgallion1/mathdocx/internal/config"
	"github.com/dgallion1/mathdocx/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for mathdocx.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	claude       *analysis.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. claude may be nil, in
// which case image conversions fail and LLM stats are unavailable.
func NewServer(orch *pipeline.Orchestrator, claude *analysis.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		claude:       claude,
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

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/convert", s.handleConvert)
		r.Post("/api/convert/batch", s.handleBatchConvert)
		r.Get("/api/convert/{jobID}/status", s.handleConvertStatus)
		r.Get("/api/convert/{jobID}/result", s.handleConvertResult)
		r.Get("/api/convert/{jobID}/analysis", s.handleConvertAnalysis)
		r.Get("/api/convert/{jobID}/tables.xlsx", s.handleConvertTables)

		r.Post("/api/render", s.handleRender)
		r.Post("/api/preview", s.handlePreview)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
		"analyzer":    s.claude != nil,
	})
}
