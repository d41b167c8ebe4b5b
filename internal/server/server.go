package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"clipforge/internal/api"
	"clipforge/internal/config"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	httpServer *http.Server
	router     *chi.Mux
	handler    *api.Handler
}

func New(cfg *config.Config, logger zerolog.Logger, handler *api.Handler) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		handler: handler,
	}

	s.router = chi.NewRouter()
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		// zero by default so long streams are not cut off
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

// Router exposes the configured routes, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(CORSMiddleware)
	s.router.Use(LoggingMiddleware(s.logger))
}

func (s *Server) setupRoutes() {
	h := s.handler

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/settings", h.Settings)
		r.Get("/caption-styles", h.CaptionStyles)
		r.Get("/images/search", h.SearchImages)

		r.Route("/styles", func(r chi.Router) {
			r.Get("/", h.ListStyles)
			r.Post("/", h.SaveStyle)
			r.Get("/{styleId}", h.GetStyle)
			r.Delete("/{styleId}", h.DeleteStyle)
		})

		r.Get("/files/{fileId}/content", h.FileContent)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", h.CreateProject)
			r.Get("/", h.ListProjects)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetProject)
				r.Delete("/", h.DeleteProject)
				r.Get("/history", h.History)

				// Library
				r.Post("/files", h.UploadFiles)
				r.Get("/files", h.ListFiles)
				r.Post("/scan", h.ScanDirectory)

				// Editing
				r.Post("/actions", h.ApplyActions)
				r.Post("/chat", h.Chat)
				r.Post("/styles/{styleId}/apply", h.ApplyStyle)
				r.Post("/transcripts/{clipIndex}", h.Transcribe)
				r.Get("/export/{format}", h.Export)
			})
		})
	})
}

// Start blocks until the server fails or Shutdown completes.
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Int64("max_upload_mb", s.cfg.Server.MaxUploadMB).
		Msg("listening")

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown waits for in-flight requests, including running action batches,
// for at most shutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Dur("timeout", shutdownTimeout).Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
