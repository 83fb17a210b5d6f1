// Package httpserver exposes health, metrics and admin triggers over HTTP.
package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Trigger starts a weekly report run in the background
type Trigger interface {
	TriggerNow() error
}

type Server struct {
	trigger    Trigger
	busy       error
	adminToken string
	gatherer   prometheus.Gatherer
	log        zerolog.Logger
}

type Option func(*Server)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithAdminTrigger enables POST /admin/reports/weekly. busy is the error
// the trigger returns when a run is already in flight
func WithAdminTrigger(trigger Trigger, token string, busy error) Option {
	return func(s *Server) {
		s.trigger = trigger
		s.adminToken = token
		s.busy = busy
	}
}

func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func NewServer(opts ...Option) *Server {
	srv := &Server{log: zerolog.Nop(), gatherer: prometheus.DefaultGatherer}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	if s.trigger != nil && s.adminToken != "" {
		r.Post("/admin/reports/weekly", s.handleWeeklyReport)
	}

	return r
}

func (s *Server) handleWeeklyReport(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Admin-Token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid admin token")
		return
	}

	err := s.trigger.TriggerNow()
	switch {
	case err == nil:
		s.log.Info().Str("remote", r.RemoteAddr).Msg("weekly report triggered over http")
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	case s.busy != nil && errors.Is(err, s.busy):
		writeError(w, http.StatusConflict, "busy", "a weekly report is already running")
	default:
		s.log.Error().Err(err).Msg("trigger weekly report")
		writeError(w, http.StatusInternalServerError, "internal", "could not start the weekly report")
	}
}

// ListenAndServe serves the router on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}
