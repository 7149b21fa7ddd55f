package api

import (
	"encoding/json"
	"net/http"

	"github.com/dumebi/healthchat/internal/secret"
	"github.com/dumebi/healthchat/pkg/utils"
)

// Admin manages the cached API key submitted through the settings sidebar.
type Admin struct{ secrets *secret.Store }

func NewAdmin(secrets *secret.Store) *Admin { return &Admin{secrets: secrets} }

// SetKey POST /admin/key { key }
func (a *Admin) SetKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if !a.secrets.Set(req.Key) {
		utils.JSON(w, 400, map[string]any{"error": "key required"})
		return
	}
	utils.JSON(w, 200, map[string]any{"ok": true})
}

// ClearKey DELETE /admin/key
func (a *Admin) ClearKey(w http.ResponseWriter, r *http.Request) {
	a.secrets.Clear()
	utils.JSON(w, 200, map[string]any{"ok": true})
}
