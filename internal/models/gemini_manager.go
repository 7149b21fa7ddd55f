package models

import (
	"context"

	"github.com/dumebi/healthchat/internal/gemini"
)

// GeminiManager lists models from the provider's catalog endpoint. Before a
// key is available it answers with the fallback set so the UI still renders.
type GeminiManager struct {
	c        *gemini.Client
	fallback []string
}

func NewGeminiManager(c *gemini.Client, fallback []string) *GeminiManager {
	return &GeminiManager{c: c, fallback: fallback}
}

func (m *GeminiManager) List(ctx context.Context) ([]string, error) {
	items, err := m.c.ListModels(ctx)
	if err != nil {
		return append([]string(nil), m.fallback...), nil
	}
	return items, nil
}

func (m *GeminiManager) Healthy(ctx context.Context, model string) error {
	items, err := m.List(ctx)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it == model {
			return nil
		}
	}
	return ErrUnknownModel
}
