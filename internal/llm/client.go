// Package llm adapts text-generation providers to the coaching pipeline.
package llm

import (
	"context"
	"fmt"

	"github.com/ashureev/maven/internal/config"
)

// Client is a single completion call against a provider.
// System instructions are always sent separately from the user content.
type Client interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// NewClient creates the client for the configured provider.
func NewClient(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg.Anthropic, cfg.BaseURL), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAI, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
