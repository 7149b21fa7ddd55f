package ui

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dumebi/healthchat/internal/buildinfo"
	"github.com/dumebi/healthchat/internal/session"
)

func RegisterRoutes(mux *chi.Mux, h *UI) {
	mux.Get("/", h.Home)
	mux.Post("/ui/session/new", h.NewSession)
	mux.Post("/ui/key", h.KeyPost)
	mux.Get("/ui/version-pill", h.VersionPill)
}

// Home shows the chat UI. Optional conversation via query: /?s=<id>
func (u *UI) Home(w http.ResponseWriter, r *http.Request) {
	sid := strings.TrimSpace(r.URL.Query().Get("s"))
	if sid == "" {
		sid = "default"
	}

	// auto-start: empty conversations open with the assistant greeting
	if err := u.chat.EnsureGreeting(sid); err != nil {
		u.log.Warn("seed greeting", "err", err.Error())
	}

	// preload models
	mods, _ := u.models.List(r.Context())

	// history
	msgs, _ := u.sessions.Get(sid)
	hist := make([]MsgView, 0, len(msgs))
	for _, m := range msgs {
		hist = append(hist, MsgView{Role: string(m.Role), HTML: u.mdHTML(m.Content)})
	}

	// conversations list (best effort if memory store)
	var sessions []session.Summary
	if mem, ok := u.sessions.(*session.MemoryStore); ok {
		sessions = mem.List()
		sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].Updated.After(sessions[j].Updated) })
	}

	u.render(w, "chat.html", map[string]any{
		"Models":    mods,
		"SessionID": sid,
		"History":   hist,
		"Sessions":  sessions,
		"KeyReady":  u.secrets.Ready(),
		"Commit":    buildinfo.Commit,
		"Version":   buildinfo.Version,
		"BuiltAt":   buildinfo.BuiltAt,
	}, http.StatusOK)
}

// NewSession creates a fresh conversation ID and redirects to /?s=...
func (u *UI) NewSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	if mem, ok := u.sessions.(*session.MemoryStore); ok {
		mem.Touch(id)
	}
	http.Redirect(w, r, "/?s="+id, http.StatusFound)
}

// KeyPost accepts the API key from the sidebar form and redirects back.
func (u *UI) KeyPost(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	key := strings.TrimSpace(r.Form.Get("key"))
	if key != "" {
		u.secrets.Set(key)
	}
	sid := r.Form.Get("session_id")
	target := "/"
	if sid != "" {
		target = "/?s=" + sid
	}
	http.Redirect(w, r, target, http.StatusFound)
}

type versionVM struct {
	Version string
	Commit  string
	BuiltAt string
}

func (u *UI) VersionPill(w http.ResponseWriter, r *http.Request) {
	// Fragment response; avoid caching so rollouts show quickly
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	data := versionVM{
		Version: buildinfo.Version,
		Commit:  buildinfo.Commit,
		BuiltAt: buildinfo.BuiltAt,
	}
	if err := u.tpl.ExecuteTemplate(w, "version-pill.html", data); err != nil {
		u.errTpl(w, err)
	}
}
