// Package status serves the latest known status of a mower
package status

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wrale/automower-session/cmd/automower-session/handlers/common"
	"github.com/wrale/automower-session/internal/mowerstate"
)

// Handler processes mower status requests
type Handler struct {
	store  mowerstate.Store
	logger *slog.Logger
}

// New creates a new status handler
func New(store mowerstate.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, logger: logger}
}

// ServeHTTP expects the mower identifier in the "id" route parameter
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		common.WriteError(w, http.StatusBadRequest, "invalid_request", "Missing mower id")
		return
	}

	status, err := h.store.GetStatus(r.Context(), id)
	if err != nil {
		h.logger.Error("reading mower status", slog.String("id", id), slog.Any("error", err))
		common.WriteError(w, http.StatusInternalServerError, "server_error", "Unable to read status")
		return
	}
	if status == nil {
		common.WriteError(w, http.StatusNotFound, "not_found", "No status received for mower")
		return
	}

	common.WriteJSON(w, http.StatusOK, status)
}
