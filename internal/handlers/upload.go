package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lehigh-university-libraries/avatarsheet/internal/images"
	"github.com/lehigh-university-libraries/avatarsheet/internal/models"
	"github.com/lehigh-university-libraries/avatarsheet/internal/session"
	"github.com/lehigh-university-libraries/avatarsheet/internal/storage"
)

// maxRequestBytes allows a full session of uploads plus form overhead.
const maxRequestBytes = storage.Capacity*images.MaxBytes + 1<<20

type uploadResponse struct {
	Entries []models.EntryView `json:"entries"`
	Dropped int                `json:"dropped"`
}

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	var (
		files []session.Upload
		ok    bool
	)

	// Check if this is a JSON request with image URL
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		files, ok = h.readURLUpload(w, r)
	} else {
		files, ok = h.readFileUploads(w, r)
	}
	if !ok {
		return
	}

	accepted, err := h.controller.Upload(files)
	if err != nil && !errors.Is(err, storage.ErrFull) {
		h.writeControllerError(w, err)
		return
	}
	if len(accepted) == 0 {
		h.writeControllerError(w, storage.ErrFull)
		return
	}

	h.writeJSONStatus(w, http.StatusAccepted, uploadResponse{
		Entries: models.Views(accepted),
		Dropped: len(files) - len(accepted),
	})
}

// HandleReplace overwrites one slot with a single new file.
func (h *Handler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	files, ok := h.readFileUploads(w, r)
	if !ok {
		return
	}

	entry, err := h.controller.ReplaceSlot(chi.URLParam(r, "id"), files[0])
	if err != nil {
		h.writeControllerError(w, err)
		return
	}

	h.writeJSONStatus(w, http.StatusAccepted, entry.View())
}

func (h *Handler) readURLUpload(w http.ResponseWriter, r *http.Request) ([]session.Upload, bool) {
	var request struct {
		ImageURL string `json:"image_url"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}

	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return nil, false
	}

	name, data, err := h.fetcher.Fetch(r.Context(), request.ImageURL)
	if err != nil {
		h.writeError(w, "Failed to fetch image URL: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}

	return []session.Upload{{Name: name, Data: data}}, true
}

func (h *Handler) readFileUploads(w http.ResponseWriter, r *http.Request) ([]session.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.writeError(w, "Failed to read upload: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		h.writeError(w, "No files uploaded", http.StatusBadRequest)
		return nil, false
	}

	files := make([]session.Upload, 0, len(headers))
	for _, header := range headers {
		data, err := readPart(header)
		if errors.Is(err, images.ErrTooLarge) {
			h.writeError(w, header.Filename+": "+err.Error(), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		if err != nil {
			h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusBadRequest)
			return nil, false
		}
		files = append(files, session.Upload{Name: header.Filename, Data: data})
	}

	return files, true
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return images.ReadLimited(file)
}
