// Package api exposes the conversion pipeline over HTTP for the local
// front end.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/denniheim/notemaker/internal/config"
	"github.com/denniheim/notemaker/internal/pipeline"
	"github.com/denniheim/notemaker/internal/prompt"
	"github.com/denniheim/notemaker/internal/sandbox"
)

// Converter runs one conversion request.
type Converter interface {
	Convert(ctx context.Context, req pipeline.Request) (pipeline.Result, *pipeline.Failure)
}

// Server is the HTTP layer over the conversion pipeline.
type Server struct {
	router  chi.Router
	conv    Converter
	box     *sandbox.Box
	presets map[string]prompt.Preset
	log     *slog.Logger
	cfg     config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(conv Converter, box *sandbox.Box, presets map[string]prompt.Preset, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		conv:    conv,
		box:     box,
		presets: presets,
		log:     log,
		cfg:     cfg,
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

	r.Get("/health", s.handleHealth)

	r.Get("/api/options", s.handleOptions)
	r.Post("/api/generate", s.handleGenerate)
	r.Get("/api/browse", s.handleBrowse)
	r.Get("/api/notes/{name}", s.handleNoteDownload)
	r.Get("/api/notes/{name}/preview", s.handleNotePreview)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
