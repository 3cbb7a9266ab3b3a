package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Providers accepted by New.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Completer is the surface shared by every provider client.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
	Model() string
}

// New builds the client for cfg.Provider. An empty provider means OpenAI.
func New(cfg Config, logger *zap.Logger) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		client, err := NewClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case ProviderAnthropic:
		client, err := NewAnthropicClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
