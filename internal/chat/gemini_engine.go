package chat

import (
	"context"

	"github.com/dumebi/healthchat/internal/gemini"
	"github.com/dumebi/healthchat/pkg/types"
)

type GeminiEngine struct {
	c *gemini.Client
}

func NewGeminiEngine(c *gemini.Client) *GeminiEngine {
	return &GeminiEngine{c: c}
}

// Complete builds the provider request and opens the fragment stream.
// First turn (no history): the system instruction is prefixed to the prompt
// text rather than sent as a separate field. Later turns: prior history is
// converted to provider roles and the new prompt appended as the last turn.
func (e *GeminiEngine) Complete(ctx context.Context, model, prompt string, history []types.Message) (Stream, Session, error) {
	var contents []gemini.Content
	if len(history) == 0 {
		contents = []gemini.Content{gemini.UserContent(FirstTurnPrompt(prompt))}
	} else {
		contents = gemini.FromMessages(history)
		contents = append(contents, gemini.UserContent(prompt))
	}

	st, err := e.c.StreamGenerate(ctx, model, contents)
	if err != nil {
		return nil, nil, err
	}
	return st, gemini.NewChatSession(model, contents), nil
}
