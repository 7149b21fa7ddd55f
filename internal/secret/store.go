package secret

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// EnvKey is the only environment input the app reads for credentials.
const EnvKey = "GOOGLE_API_KEY"

// Store resolves the Gemini API key. Priority order: environment variable,
// then a value previously cached in this process (typically submitted
// through the settings sidebar). The key is never logged.
type Store struct {
	mu     sync.RWMutex
	cached string
	log    *slog.Logger
}

func NewStore(log *slog.Logger) *Store {
	s := &Store{log: log}
	if v := strings.TrimSpace(os.Getenv(EnvKey)); v != "" {
		s.cached = v
		log.Info("api key loaded from environment")
	}
	return s
}

// Get returns the key and whether one is available.
func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached, s.cached != ""
}

// Ready reports whether a key is available. The orchestrator fails closed
// when this returns false.
func (s *Store) Ready() bool {
	_, ok := s.Get()
	return ok
}

// Set caches a key submitted interactively. Empty input is ignored.
func (s *Store) Set(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	s.mu.Lock()
	s.cached = key
	s.mu.Unlock()
	s.log.Info("api key updated")
	return true
}

// Clear drops the cached key; requests fail closed again afterwards.
func (s *Store) Clear() {
	s.mu.Lock()
	s.cached = ""
	s.mu.Unlock()
	s.log.Info("api key cleared")
}
