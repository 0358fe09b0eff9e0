package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/avatarsheet/internal/compositor"
	"github.com/lehigh-university-libraries/avatarsheet/internal/images"
	"github.com/lehigh-university-libraries/avatarsheet/internal/retouch"
	"github.com/lehigh-university-libraries/avatarsheet/internal/session"
	"github.com/lehigh-university-libraries/avatarsheet/internal/storage"
)

type Handler struct {
	controller *session.Controller
	fetcher    *images.Fetcher
}

func New(controller *session.Controller, fetcher *images.Fetcher) *Handler {
	if fetcher == nil {
		fetcher = images.NewFetcher()
	}
	return &Handler{
		controller: controller,
		fetcher:    fetcher,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "code", code)
	http.Error(w, message, code)
}

// writeControllerError maps session errors onto status codes
func (h *Handler) writeControllerError(w http.ResponseWriter, err error) {
	var rerr *session.RetouchError
	switch {
	case errors.As(err, &rerr):
		h.writeError(w, rerr.Alert, http.StatusBadGateway)
	case errors.Is(err, storage.ErrNotFound):
		h.writeError(w, "Entry not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrFull):
		h.writeError(w, "Session is full", http.StatusConflict)
	case errors.Is(err, session.ErrNotReady), errors.Is(err, session.ErrNothingToFill):
		h.writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, compositor.ErrInvalidTransform):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, session.ErrRetouchDisabled):
		h.writeError(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, retouch.ErrRemoteCall):
		h.writeError(w, err.Error(), http.StatusBadGateway)
	default:
		h.writeError(w, "Internal server error: "+err.Error(), http.StatusInternalServerError)
	}
}
