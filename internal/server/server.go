// Package server provides the HTTP API for Zukan.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/zukan/internal/config"
	"github.com/hyperjump/zukan/internal/session"
	"github.com/hyperjump/zukan/pkg/utils"
)

// requestTimeout bounds every request, including ingestion of large documents.
const requestTimeout = 10 * time.Minute

// Server is the HTTP server for the Zukan API.
type Server struct {
	session *session.Session
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server that answers from sess.
func NewServer(sess *session.Session, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		session: sess,
		config:  cfg,
		logger:  utils.LoggerOrNop(logger),
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5, "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.handleIngest)
		r.Post("/ask", s.handleAsk)
		r.Post("/ask/image", s.handleAskImage)
		r.Post("/search", s.handleSearch)
		r.Post("/index/save", s.handleSave)
		r.Post("/index/load", s.handleLoad)
		r.Get("/images/{id}", s.handleGetImage)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// requestID tags each request with an ID, echoed in X-Request-ID and in the access log.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)))
	})
}
