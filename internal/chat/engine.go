package chat

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dumebi/healthchat/pkg/types"
)

// Stream is a lazy sequence of text fragments. Recv returns io.EOF when the
// reply is complete; consuming the stream is the only way to get the full
// reply.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Session is the opaque continuation handle returned by the backend for
// follow-up turns. The controller only tracks its presence.
type Session any

// Engine produces one streamed completion per call. A nil history means this
// is the first turn of a conversation and the engine prepends the system
// instruction to the prompt itself.
type Engine interface {
	Complete(ctx context.Context, model, prompt string, history []types.Message) (Stream, Session, error)
}

// EchoEngine is a backend-free engine for demo mode and tests. It streams
// the reply word by word the way the real backend streams fragments.
type EchoEngine struct {
	minLatency time.Duration
}

func NewEchoEngine(minLatency time.Duration) *EchoEngine { return &EchoEngine{minLatency: minLatency} }

func (e *EchoEngine) Complete(ctx context.Context, model, prompt string, history []types.Message) (Stream, Session, error) {
	if e.minLatency > 0 {
		time.Sleep(e.minLatency)
	}
	text := fmt.Sprintf("(demo:%s) you said: %s", model, prompt)
	return newEchoStream(text), struct{}{}, nil
}

type echoStream struct {
	words []string
	pos   int
}

func newEchoStream(text string) *echoStream {
	return &echoStream{words: strings.Fields(text)}
}

func (s *echoStream) Recv() (string, error) {
	if s.pos >= len(s.words) {
		return "", io.EOF
	}
	w := s.words[s.pos]
	s.pos++
	if s.pos < len(s.words) {
		w += " "
	}
	return w, nil
}

func (s *echoStream) Close() error { return nil }
