package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/avatarsheet/internal/models"
)

type snapshotEvent struct {
	Version uint64             `json:"version"`
	Entries []models.EntryView `json:"entries"`
}

// HandleEvents streams a snapshot of the session whenever it changes.
// Slow clients skip intermediate snapshots.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	snapshots, cancel := h.controller.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			payload, err := json.Marshal(snapshotEvent{Version: snap.Version, Entries: models.Views(snap.Entries)})
			if err != nil {
				slog.Error("Unable to encode snapshot", "err", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\nid: %d\ndata: %s\n\n", snap.Version, payload); err != nil {
				slog.Debug("Event stream closed", "err", err)
				return
			}
			flusher.Flush()
		}
	}
}
