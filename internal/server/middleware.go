package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"gallery-go/internal/gate"
)

// requestLogger logs one record per request through the run's logger.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start).Round(time.Microsecond),
				"request_id", middleware.GetReqID(r.Context()),
				"remote", r.RemoteAddr,
			)
		})
	}
}

// requireAdmin rejects requests whose session carries no login marker.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := s.gateFor(w, r).IsAuthenticated()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "login required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// gateFor builds a Gate over the request's cookie session.
func (s *Server) gateFor(w http.ResponseWriter, r *http.Request) *gate.Gate {
	return gate.New(gate.NewCookieSession(s.sessions, w, r), s.password)
}
