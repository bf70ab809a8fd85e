// Package gemini provides a meal plan provider backed by the Gemini API
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/nutriplan/mealplan/internal/infrastructure/config"
	"github.com/nutriplan/mealplan/internal/ports/outbound"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Client implements outbound.LLMProvider using google.golang.org/genai
type Client struct {
	name        string
	model       string
	temperature float32
	maxTokens   int32
	timeout     time.Duration
	maxRetries  int
	genAI       *genai.Client
	logger      *zap.Logger
}

// NewClient creates a Gemini client for one roster entry
func NewClient(ctx context.Context, cfg config.ProviderConfig, logger *zap.Logger) (*Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	genAI, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client for %s: %w", cfg.Name, err)
	}

	logger.Info("Gemini client initialized",
		zap.String("provider", cfg.Name),
		zap.String("model", cfg.Model))

	return &Client{
		name:        cfg.Name,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
		timeout:     cfg.Timeout,
		maxRetries:  cfg.MaxRetries,
		genAI:       genAI,
		logger:      logger.Named("gemini-client"),
	}, nil
}

// Name returns the roster entry name
func (c *Client) Name() string { return c.name }

// Model returns the Gemini model name
func (c *Client) Model() string { return c.model }

// Generate requests a JSON response constrained by the prompt's schema.
// The configured timeout covers every attempt.
func (c *Client) Generate(ctx context.Context, req outbound.LLMRequest) (string, error) {
	temperature := c.temperature
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleModel),
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
	}
	if c.maxTokens > 0 {
		genCfg.MaxOutputTokens = c.maxTokens
	}
	if schema, err := responseSchema(req.Schema); err != nil {
		c.logger.Warn("Ignoring unusable response schema", zap.Error(err))
	} else {
		genCfg.ResponseJsonSchema = schema
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	operation := func() (string, error) {
		content := []*genai.Content{genai.NewContentFromText(req.User, genai.RoleUser)}
		res, err := c.genAI.Models.GenerateContent(ctx, c.model, content, genCfg)
		if err != nil {
			if code := statusCode(err); code != 0 && code != 429 && code < 500 {
				return "", backoff.Permanent(fmt.Errorf("API error %d: %w", code, err))
			}
			return "", fmt.Errorf("calling GenerateContent: %w", err)
		}

		if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
			return "", backoff.Permanent(fmt.Errorf("response has no candidates"))
		}
		if reason := res.Candidates[0].FinishReason; reason != "" && reason != genai.FinishReasonStop {
			return "", backoff.Permanent(fmt.Errorf("generation stopped: %s", reason))
		}

		text := res.Text()
		if strings.TrimSpace(text) == "" {
			return "", backoff.Permanent(fmt.Errorf("gemini content: %w", outbound.ErrEmptyResponse))
		}
		return text, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("Retrying Gemini request",
				zap.String("provider", c.name),
				zap.Duration("backoff", next),
				zap.Error(err))
		}),
	)
}

// HealthCheck verifies the model is visible to the API key
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.genAI.Models.Get(ctx, c.model, nil); err != nil {
		return fmt.Errorf("model %s unavailable: %w", c.model, err)
	}
	return nil
}

// statusCode extracts the HTTP status from a genai error, or 0 when the
// failure happened before a response was received.
func statusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}

// responseSchema decodes the prompt's JSON Schema for ResponseJsonSchema,
// which takes standard JSON Schema as-is.
func responseSchema(schema outbound.OutputSchema) (map[string]any, error) {
	if schema.JSON == "" {
		return nil, fmt.Errorf("no schema supplied")
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(schema.JSON), &out); err != nil {
		return nil, fmt.Errorf("decoding schema %s: %w", schema.Name, err)
	}
	if _, ok := out["description"]; !ok && schema.Description != "" {
		out["description"] = schema.Description
	}
	return out, nil
}
