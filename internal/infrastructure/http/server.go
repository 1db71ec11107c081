// Package http provides the HTTP API over the retrieval service.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/0xcro3dile/askdocs/internal/domain/ports"
	"github.com/0xcro3dile/askdocs/internal/domain/usecases"
	"github.com/0xcro3dile/askdocs/internal/infrastructure/logger"
)

// SessionHeader carries the session id in requests and responses.
const SessionHeader = "X-Session-ID"

// maxUploadSize bounds the multipart form kept in memory; larger parts spill to disk.
const maxUploadSize = 32 << 20

// Server is the HTTP server for the document chat API.
type Server struct {
	svc      *usecases.RetrievalService
	index    ports.VectorIndex
	sessions *SessionStore
	addr     string
	log      *zap.Logger
}

// NewServer creates a new HTTP server.
func NewServer(
	svc *usecases.RetrievalService,
	index ports.VectorIndex,
	sessions *SessionStore,
	addr string,
	log *zap.Logger,
) *Server {
	return &Server{
		svc:      svc,
		index:    index,
		sessions: sessions,
		addr:     addr,
		log:      logger.OrNop(log).Named("http"),
	}
}

// Handler returns the router with all routes and middleware installed.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.handleUpload)
			r.Get("/", s.handleDocuments)
		})
		r.Post("/chat", s.handleChat)
		r.Get("/search", s.handleSearch)
		r.Get("/history", s.handleHistory)
		r.Post("/admin/reset", s.handleReset)
	})

	return r
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 300 * time.Second, // answer generation can be slow
	}

	s.log.Info("askdocs server starting", zap.String("addr", s.addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("shutdown", zap.Error(err))
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+SessionHeader)
		w.Header().Set("Access-Control-Expose-Headers", SessionHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
