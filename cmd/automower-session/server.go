package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wrale/automower-session/cmd/automower-session/handlers/health"
	"github.com/wrale/automower-session/cmd/automower-session/handlers/status"
	"github.com/wrale/automower-session/internal/mowerstate"
	"github.com/wrale/automower-session/internal/stream"
)

type server struct {
	router  *chi.Mux
	session health.Session
	store   mowerstate.Store
	logger  *slog.Logger
}

func newServer(session health.Session, store mowerstate.Store, logger *slog.Logger) *server {
	srv := &server{
		router:  chi.NewRouter(),
		session: session,
		store:   store,
		logger:  logger,
	}

	// Set up middleware
	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.RealIP)
	srv.router.Use(middleware.Logger)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(middleware.Timeout(30 * time.Second))

	srv.routes()
	return srv
}

func (s *server) routes() {
	s.router.Method(http.MethodGet, "/health", health.New(s.session, s.store).WithVersion(Version))
	s.router.Method(http.MethodGet, "/mowers/{id}/status", status.New(s.store, s.logger))
}

// recordStatus is the session's status subscriber. Storage failures are
// logged and never reach the stream.
func (s *server) recordStatus(ev *stream.StatusEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st := mowerstate.FromEvent(ev, time.Now())
	if err := s.store.SaveStatus(ctx, st); err != nil {
		s.logger.Error("saving mower status", slog.String("id", ev.ID), slog.Any("error", err))
		return
	}

	s.logger.Debug("mower status updated",
		slog.String("id", st.MowerID),
		slog.String("activity", st.Activity),
		slog.Int("battery", st.BatteryPercent),
	)
}
