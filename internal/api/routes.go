package api

import "github.com/go-chi/chi/v5"

func RegisterRoutes(mux *chi.Mux, h *Handlers) {
	mux.Get("/healthz", h.Health)
	mux.Get("/version", h.Version)

	mux.Post("/api/chat", h.Chat)
	mux.Get("/api/models", h.ListModels)
	mux.Get("/api/key/status", h.KeyStatus)

	mux.Get("/api/history/{session_id}", h.GetHistory)
	if h.Admin != nil {
		mux.Post("/admin/key", h.Admin.SetKey)
		mux.Delete("/admin/key", h.Admin.ClearKey)
	}
}
