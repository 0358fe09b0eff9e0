package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router returns the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.HandleListEntries)
			r.Post("/", h.HandleUpload)
			r.Delete("/", h.HandleClear)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.HandleGetEntry)
				r.Put("/", h.HandleReplace)
				r.Delete("/", h.HandleRemove)
				r.Patch("/transform", h.HandleTransform)
				r.Post("/fill", h.HandleFill)
				r.Post("/enhance", h.HandleEnhance)
				r.Get("/image", h.HandleEntryImage)
			})
		})
		r.Get("/sheet", h.HandleSheet)
		r.Get("/events", h.HandleEvents)
	})

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
