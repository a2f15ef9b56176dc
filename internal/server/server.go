// Package server exposes the gallery over HTTP: public event pages, photo
// streaming and archive download, plus gate-protected admin endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	gcontext "github.com/gorilla/context"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"gallery-go/internal/gallery"
	"gallery-go/internal/gate"
)

// DefaultMaxUploadBytes bounds the multipart body of one upload request.
const DefaultMaxUploadBytes = 64 << 20

// Options configures a Server.
type Options struct {
	Addr           string
	Password       string
	SessionSecret  []byte // random per process when empty
	RateLimit      int    // requests per minute per client IP; 0 disables
	MaxUploadBytes int64
	ShutdownGrace  time.Duration
}

// Server serves the gallery over HTTP.
type Server struct {
	service  *gallery.Service
	sessions sessions.Store
	password string
	logger   *slog.Logger
	metrics  *metrics
	opts     Options
	router   chi.Router
}

// New creates a Server over svc. A nil logger discards request logs.
func New(svc *gallery.Service, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 10 * time.Second
	}

	secret := opts.SessionSecret
	if len(secret) == 0 {
		logger.Warn("no session secret configured, sessions end when the server stops")
		secret = securecookie.GenerateRandomKey(32)
	}

	s := &Server{
		service:  svc,
		sessions: gate.NewCookieStore(secret),
		password: opts.Password,
		logger:   logger,
		metrics:  newMetrics(),
		opts:     opts,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.metrics.instrument)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if s.opts.RateLimit > 0 {
		r.Use(httprate.LimitByIP(s.opts.RateLimit, time.Minute))
	}

	r.Get("/metrics", s.metrics.handler().ServeHTTP)

	r.Get("/gallery/{eventID}", s.handleGallery)
	r.Get("/gallery/{eventID}/photos/{photoID}", s.handlePhoto)
	r.Get("/gallery/{eventID}/archive", s.handleArchive)

	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/events", s.handleListEvents)
		r.Post("/events", s.handleCreateEvent)
		r.Get("/events/{eventID}", s.handleGetEvent)
		r.Patch("/events/{eventID}", s.handleUpdateEvent)
		r.Delete("/events/{eventID}", s.handleDeleteEvent)
		r.Post("/events/{eventID}/photos", s.handleUploadPhotos)
		r.Delete("/photos/{photoID}", s.handleDeletePhoto)
	})

	return r
}

// Handler returns the root HTTP handler. Per-request session registry
// entries are cleared once each request completes.
func (s *Server) Handler() http.Handler {
	return gcontext.ClearHandler(s.router)
}

// ListenAndServe serves on opts.Addr until ctx is cancelled, then shuts down
// gracefully and releases any display references still held.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe over an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.service.Displays().ReleaseAll()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownGrace)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if n := s.service.Displays().ReleaseAll(); n > 0 {
		s.logger.Warn("released display references at shutdown", "count", n)
	}
	if err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
