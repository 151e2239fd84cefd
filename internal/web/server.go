// Package web exposes the dashboard HTTP API.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mailpilot/internal/store"
)

// Server wraps the pipeline behind a chi router.
type Server struct {
	pipeline *pipelineHandlers
	router   chi.Router
	log      *slog.Logger
}

func NewServer(p Pipeline, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		pipeline: &pipelineHandlers{p: p, log: logger},
		log:      logger,
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Post("/process-emails", s.pipeline.processEmails)
	r.Get("/emails", s.pipeline.listEmails)
	r.Post("/emails/{id}/send", s.pipeline.sendEmail)
	r.Post("/emails/{id}/discard", s.pipeline.discardEmail)
	r.Get("/email-stats", s.pipeline.emailStats)
	r.Get("/healthz", s.pipeline.healthz)

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks serving the API until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("dashboard api listening", "addr", addr)
	return srv.ListenAndServe()
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps archive errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
