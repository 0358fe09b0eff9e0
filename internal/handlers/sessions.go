package handlers

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lehigh-university-libraries/avatarsheet/internal/compositor"
	"github.com/lehigh-university-libraries/avatarsheet/internal/models"
	"github.com/lehigh-university-libraries/avatarsheet/internal/session"
)

func (h *Handler) HandleListEntries(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, models.Views(h.controller.Entries()))
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.controller.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.controller.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeControllerError(w, err)
		return
	}
	h.writeJSON(w, entry.View())
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Remove(chi.URLParam(r, "id")); err != nil {
		h.writeControllerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleTransform(w http.ResponseWriter, r *http.Request) {
	var t compositor.Transform
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.controller.UpdateTransform(chi.URLParam(r, "id"), t)
	if err != nil {
		h.writeControllerError(w, err)
		return
	}
	h.writeJSON(w, entry.View())
}

func (h *Handler) HandleFill(w http.ResponseWriter, r *http.Request) {
	h.handleRetouch(w, r, h.controller.Fill)
}

func (h *Handler) HandleEnhance(w http.ResponseWriter, r *http.Request) {
	h.handleRetouch(w, r, h.controller.Enhance)
}

// handleRetouch holds the request open until the retouch finishes. If the
// client goes away the task still runs to completion.
func (h *Handler) handleRetouch(w http.ResponseWriter, r *http.Request, start func(string) (*session.Task, error)) {
	id := chi.URLParam(r, "id")
	task, err := start(id)
	if err != nil {
		h.writeControllerError(w, err)
		return
	}

	if err := task.Wait(r.Context()); err != nil {
		if r.Context().Err() != nil {
			slog.Warn("Client left before retouch finished", "id", id)
			return
		}
		h.writeControllerError(w, err)
		return
	}

	entry, err := h.controller.Get(id)
	if err != nil {
		h.writeControllerError(w, err)
		return
	}
	h.writeJSON(w, entry.View())
}

func (h *Handler) HandleEntryImage(w http.ResponseWriter, r *http.Request) {
	data, name, err := h.controller.EntryImage(chi.URLParam(r, "id"))
	if err != nil {
		h.writeControllerError(w, err)
		return
	}
	writeDownload(w, "image/png", name, data)
}

func (h *Handler) HandleSheet(w http.ResponseWriter, r *http.Request) {
	quality := compositor.DefaultJPEGQuality
	if q := r.URL.Query().Get("quality"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil || parsed < 1 || parsed > 100 {
			h.writeError(w, "quality must be an integer between 1 and 100", http.StatusBadRequest)
			return
		}
		quality = parsed
	}

	sheet, err := h.controller.Sheet(quality)
	if err != nil {
		h.writeControllerError(w, err)
		return
	}
	w.Header().Set("X-Sheet-Items", strconv.Itoa(len(sheet.Slots)))
	writeDownload(w, "image/jpeg", session.SheetFilename, sheet.JPEG)
}

func writeDownload(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if _, err := w.Write(data); err != nil {
		slog.Error("Unable to write download", "filename", filename, "err", err)
	}
}
