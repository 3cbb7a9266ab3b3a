// Package llm provides the chat completion clients used for grading.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config holds configuration for creating a client.
type Config struct {
	Provider            string // "openai" or "anthropic"
	BaseURL             string // e.g. "https://api.openai.com/v1"
	APIKey              string
	Model               string
	Temperature         float32
	MaxCompletionTokens int
}

// Client sends single-turn prompts to a chat completion endpoint.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("llm api key is not configured")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	if cfg.MaxCompletionTokens <= 0 {
		cfg.MaxCompletionTokens = 800
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxCompletionTokens,
		logger:      logger.Named("llm"),
	}, nil
}

// Complete sends prompt as a user message and returns the first choice's content.
// maxTokens <= 0 uses the configured completion budget.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		c.logger.Warn("llm request failed",
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", ClassifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", NewError(ErrorTypeResponse, "no choices in response", nil)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", NewError(ErrorTypeResponse, "empty completion", nil)
	}

	c.logger.Debug("llm request completed",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))
	return content, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}
