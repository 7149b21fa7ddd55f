package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dumebi/healthchat/internal/buildinfo"
	"github.com/dumebi/healthchat/internal/chat"
	"github.com/dumebi/healthchat/internal/models"
	"github.com/dumebi/healthchat/internal/secret"
	"github.com/dumebi/healthchat/internal/session"
	"github.com/dumebi/healthchat/pkg/utils"
)

type Handlers struct {
	log          *slog.Logger
	chat         *chat.Controller
	models       models.Manager
	sessions     session.Store
	secrets      *secret.Store
	defaultModel string
	Admin        *Admin
}

func NewHandlers(log *slog.Logger, chatCtrl *chat.Controller, manager models.Manager, store session.Store, secrets *secret.Store, defaultModel string) *Handlers {
	return &Handlers{
		log:          log,
		chat:         chatCtrl,
		models:       manager,
		sessions:     store,
		secrets:      secrets,
		defaultModel: defaultModel,
	}
}

// Health is a basic liveness endpoint.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	res := map[string]any{
		"status":    true,
		"message":   "healthchat",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	utils.JSON(w, http.StatusOK, res)
}

func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	res := map[string]any{
		"version":  buildinfo.Version,
		"commit":   buildinfo.Commit,
		"built_at": buildinfo.BuiltAt,
	}

	utils.JSON(w, http.StatusOK, res)
}

// ListModels GET /api/models
func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	items, err := h.models.List(r.Context())
	if err != nil {
		utils.JSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"models": items})
}

// KeyStatus GET /api/key/status
func (h *Handlers) KeyStatus(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, map[string]any{"ready": h.secrets.Ready()})
}

// Chat POST /api/chat streams one turn as server-sent events: a "user" ack,
// "delta" events carrying the running partial text, optionally one "error",
// then a final "done" with the recorded assistant message.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model     string `json:"model"`
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if req.Message == "" {
		utils.JSON(w, http.StatusBadRequest, map[string]any{"error": "message is required"})
		return
	}
	if req.Model == "" {
		req.Model = h.defaultModel
	}
	if req.SessionID == "" {
		req.SessionID = "default"
	}

	// Fail closed before any stream is opened.
	if !h.secrets.Ready() {
		utils.JSON(w, http.StatusServiceUnavailable, map[string]any{"error": "api_key_missing"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.JSON(w, http.StatusInternalServerError, map[string]any{"error": "streaming unsupported"})
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, flusher, "user", map[string]any{"content": req.Message})

	emit := func(partial string) {
		writeEvent(w, flusher, "delta", map[string]any{"text": partial})
	}

	msg, err := h.chat.Submit(r.Context(), req.SessionID, req.Model, req.Message, emit)
	if err != nil {
		if errors.Is(err, chat.ErrAPIKeyMissing) {
			writeEvent(w, flusher, "error", map[string]any{"error": "api_key_missing"})
			return
		}
		// Turn-level failure: the substitute assistant message was already
		// recorded; surface the reason alongside it.
		writeEvent(w, flusher, "error", map[string]any{"error": err.Error()})
	}
	writeEvent(w, flusher, "done", map[string]any{
		"content":    msg.Content,
		"timestamp":  msg.Timestamp.UTC().Format(time.RFC3339),
		"model":      req.Model,
		"session_id": req.SessionID,
	})
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	flusher.Flush()
}

// GetHistory GET /api/history/{session_id}
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		utils.JSON(w, http.StatusBadRequest, map[string]any{"error": "missing session_id"})
		return
	}

	history, err := h.sessions.Get(sessionID)
	if err != nil {
		utils.JSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	// Shape history for the contract
	out := make([]map[string]string, 0, len(history))
	for _, m := range history {
		out = append(out, map[string]string{"role": string(m.Role), "content": m.Content})
	}
	utils.JSON(w, http.StatusOK, map[string]any{"history": out})
}
