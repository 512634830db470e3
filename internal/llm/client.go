// Package llm wraps the external text-generation service behind a minimal
// interface so the matching pipeline can be tested without network access.
package llm

import (
	"context"
	"errors"
	"fmt"

	"cofound/internal/config"
)

// ErrDisabled is returned by the no-op client when no provider is configured.
// The matching pipeline degrades to empty results on any client error, so a
// deployment without an API key simply serves no suggestions.
var ErrDisabled = errors.New("llm provider disabled")

// Client defines the minimal interface the matching pipeline uses to call
// the generation service.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// New constructs the client named by the config provider.
func New(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "gemini", "":
		if cfg.APIKey == "" {
			return &disabledClient{}, nil
		}
		return NewGeminiClient(cfg)
	case "off", "none":
		return &disabledClient{}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

type disabledClient struct{}

func (d *disabledClient) Complete(ctx context.Context, prompt string) (string, error) {
	return "", ErrDisabled
}

func (d *disabledClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return "", ErrDisabled
}
