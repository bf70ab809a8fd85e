// Package openai provides a meal plan provider for OpenAI-compatible chat
// completion APIs such as Groq and OpenAI.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nutriplan/mealplan/internal/infrastructure/config"
	"github.com/nutriplan/mealplan/internal/ports/outbound"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

// Client implements outbound.LLMProvider using the chat completions API
type Client struct {
	name        string
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	sdk         openai.Client
	logger      *zap.Logger
}

// NewClient creates a client for one roster entry. Retries are handled by
// the SDK; cfg.Timeout bounds a whole Generate call, retries included.
func NewClient(cfg config.ProviderConfig, logger *zap.Logger) *Client {
	opts := []option.RequestOption{
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		logger.Warn("Provider has no API key configured", zap.String("provider", cfg.Name))
	}
	logger.Info("OpenAI-compatible client initialized",
		zap.String("provider", cfg.Name),
		zap.String("base_url", cfg.BaseURL),
		zap.String("model", cfg.Model))

	return &Client{
		name:        cfg.Name,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		sdk:         openai.NewClient(opts...),
		logger:      logger.Named("openai-client"),
	}
}

// Name returns the roster entry name
func (c *Client) Name() string { return c.name }

// Model returns the model identifier
func (c *Client) Model() string { return c.model }

// Generate requests a JSON-object completion for the prompt
func (c *Client) Generate(ctx context.Context, req outbound.LLMRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(c.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("API error %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("API request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion has no choices")
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", choice.Message.Refusal)
	}
	if choice.FinishReason == "length" {
		return "", fmt.Errorf("completion truncated at %d tokens", c.maxTokens)
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", fmt.Errorf("chat completion: %w", outbound.ErrEmptyResponse)
	}

	c.logger.Debug("Chat completion successful",
		zap.String("provider", c.name),
		zap.String("model", resp.Model),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens))

	return choice.Message.Content, nil
}

// HealthCheck verifies the configured model is served by the endpoint
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.sdk.Models.Get(ctx, c.model); err != nil {
		return fmt.Errorf("model %s unavailable: %w", c.model, err)
	}
	return nil
}
