// Package health reports liveness of the event stream and the status store
package health

import (
	"context"
	"net/http"

	"github.com/wrale/automower-session/cmd/automower-session/handlers/common"
	"github.com/wrale/automower-session/internal/stream"
)

// Session is the part of the stream session the handler inspects
type Session interface {
	State() stream.State
}

// Store is any backend able to report its own health
type Store interface {
	CheckHealth(ctx context.Context) error
}

// Handler processes health check requests
type Handler struct {
	session Session
	store   Store
	version string
}

// Response represents the health check response
type Response struct {
	Status  string         `json:"status"`
	Version string         `json:"version,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// New creates a new health check handler
func New(session Session, store Store) *Handler {
	return &Handler{
		session: session,
		store:   store,
		version: "unknown",
	}
}

// WithVersion sets the version for health check responses
func (h *Handler) WithVersion(version string) *Handler {
	h.version = version
	return h
}

// ServeHTTP handles health check requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := Response{
		Status:  "healthy",
		Version: h.version,
		Details: make(map[string]any),
	}

	state := h.session.State()
	if state == stream.StateConnected {
		response.Details["event_stream"] = map[string]any{
			"status": "healthy",
			"state":  state.String(),
		}
	} else {
		response.Status = "unhealthy"
		response.Details["event_stream"] = map[string]any{
			"status": "unhealthy",
			"state":  state.String(),
		}
	}

	if err := h.store.CheckHealth(r.Context()); err != nil {
		response.Status = "unhealthy"
		response.Details["status_store"] = map[string]any{
			"status":  "unhealthy",
			"message": err.Error(),
		}
	} else {
		response.Details["status_store"] = map[string]any{
			"status": "healthy",
		}
	}

	code := http.StatusOK
	if response.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	common.WriteJSON(w, code, response)
}
