package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dumebi/healthchat/pkg/types"
)

func msg(role types.Role, content string) types.Message {
	return types.Message{Role: role, Content: content, Timestamp: time.Now()}
}

func TestMemoryStore_AppendPreservesOrder(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Append("c1", msg(types.RoleAssistant, "hello")))
	require.NoError(t, s.Append("c1", msg(types.RoleUser, "hi")))
	require.NoError(t, s.Append("c1", msg(types.RoleAssistant, "what's your name?")))

	msgs, err := s.Get("c1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "hello", msgs[0].Content)
	require.Equal(t, "hi", msgs[1].Content)
	require.Equal(t, "what's your name?", msgs[2].Content)
}

func TestMemoryStore_EmptyIDRejected(t *testing.T) {
	s := NewMemoryStore()
	require.Error(t, s.Append("", msg(types.RoleUser, "hi")))
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Append("c1", msg(types.RoleUser, "hi")))

	msgs, _ := s.Get("c1")
	msgs[0].Content = "mutated"

	again, _ := s.Get("c1")
	require.Equal(t, "hi", again[0].Content)
}

func TestMemoryStore_ListAndTouch(t *testing.T) {
	s := NewMemoryStore()
	s.Touch("empty")
	require.NoError(t, s.Append("c1", msg(types.RoleAssistant, "greeting")))
	require.NoError(t, s.Append("c1", msg(types.RoleUser, "my head hurts")))

	list := s.List()
	require.Len(t, list, 2)

	byID := map[string]Summary{}
	for _, it := range list {
		byID[it.ID] = it
	}
	require.Equal(t, "my head hurts", byID["c1"].Title, "title comes from first user message, not the greeting")
	require.Equal(t, "", byID["empty"].Title)
}
