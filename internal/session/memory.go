package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dumebi/healthchat/pkg/types"
)

// Store is the append-only conversation log. Messages are immutable once
// appended and keep insertion order; nothing is ever written to disk.
type Store interface {
	Append(conversationID string, m types.Message) error
	Get(conversationID string) ([]types.Message, error)
}

type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string][]types.Message
	updated map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:    make(map[string][]types.Message),
		updated: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Append(conversationID string, m types.Message) error {
	if conversationID == "" {
		return errors.New("empty conversation id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[conversationID] = append(s.data[conversationID], m)
	s.updated[conversationID] = time.Now()
	return nil
}

func (s *MemoryStore) Get(conversationID string) ([]types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.data[conversationID]
	out := make([]types.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Summary is a lightweight sidebar entry for one conversation.
type Summary struct {
	ID      string
	Title   string
	Updated time.Time
}

func (s *MemoryStore) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.data))
	for id, msgs := range s.data {
		out = append(out, Summary{ID: id, Title: titleFrom(msgs), Updated: s.updated[id]})
	}
	return out
}

// Touch ensures a conversation exists in the list.
func (s *MemoryStore) Touch(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[conversationID]; !ok {
		s.data[conversationID] = nil
	}
	s.updated[conversationID] = time.Now()
}

// titleFrom uses the first user message; the synthesized greeting that opens
// every conversation makes a useless title.
func titleFrom(msgs []types.Message) string {
	for _, m := range msgs {
		if m.Role == types.RoleUser {
			return clip(words(m.Content), 8)
		}
	}
	return ""
}

func words(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	parts := strings.Fields(s)
	if len(parts) <= 12 {
		return s
	}
	return strings.Join(parts[:12], " ")
}

func clip(s string, n int) string {
	if len(s) <= n*2 {
		return s
	}
	return s[:n*2] + "…"
}
