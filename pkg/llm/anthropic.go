package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicClient sends single-turn prompts to the Anthropic messages API.
type AnthropicClient struct {
	client      *anthropic.Client
	model       anthropic.Model
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewAnthropicClient validates cfg and builds a client.
func NewAnthropicClient(cfg Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is not configured")
	}
	if cfg.Model == "" {
		cfg.Model = defaultAnthropicModel
	}
	if cfg.MaxCompletionTokens <= 0 {
		cfg.MaxCompletionTokens = 800
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}

	return &AnthropicClient{
		client:      anthropic.NewClient(cfg.APIKey, opts...),
		model:       anthropic.Model(cfg.Model),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxCompletionTokens,
		logger:      logger.Named("llm.anthropic"),
	}, nil
}

// Complete sends prompt as a user message and returns the text blocks of the reply.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	temperature := c.temperature

	start := time.Now()
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
		Temperature: &temperature,
	})
	if err != nil {
		c.logger.Warn("llm request failed",
			zap.String("model", string(c.model)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", classifyAnthropicError(err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			text.WriteString(*block.Text)
		}
	}
	content := strings.TrimSpace(text.String())
	if content == "" {
		return "", NewError(ErrorTypeResponse, "empty completion", nil)
	}

	c.logger.Debug("llm request completed",
		zap.String("model", string(c.model)),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))
	return content, nil
}

// Model returns the configured model name.
func (c *AnthropicClient) Model() string {
	return string(c.model)
}

func classifyAnthropicError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorTypeTimeout, "request timeout", err)
	}
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		var t ErrorType
		switch string(apiErr.Type) {
		case "authentication_error", "permission_error":
			t = ErrorTypeAuth
		case "rate_limit_error":
			t = ErrorTypeQuota
		case "api_error", "overloaded_error", "not_found_error":
			t = ErrorTypeEndpoint
		default:
			t = ErrorTypeUnknown
		}
		return NewError(t, apiErr.Message, nil)
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode > 0 {
		e := NewError(classifyStatus(reqErr.StatusCode), "request failed", reqErr.Err)
		e.StatusCode = reqErr.StatusCode
		return e
	}
	return ClassifyError(err)
}
