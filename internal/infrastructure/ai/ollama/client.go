// Package ollama provides a meal plan provider backed by a local Ollama server
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/nutriplan/mealplan/internal/infrastructure/config"
	"github.com/nutriplan/mealplan/internal/ports/outbound"
	"go.uber.org/zap"
)

const defaultBaseURL = "http://localhost:11434"

// Client implements outbound.LLMProvider using the Ollama chat API
type Client struct {
	name        string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	maxRetries  int
	timeout     time.Duration
	client      *http.Client
	logger      *zap.Logger
}

// NewClient creates a new Ollama client for one roster entry
func NewClient(cfg config.ProviderConfig, logger *zap.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	logger.Info("Ollama client initialized",
		zap.String("provider", cfg.Name),
		zap.String("base_url", baseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout))

	return &Client{
		name:        cfg.Name,
		baseURL:     baseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  cfg.MaxRetries,
		timeout:     cfg.Timeout,
		client:      &http.Client{},
		logger:      logger.Named("ollama-client"),
	}
}

// ChatMessage is a single chat turn
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the /api/chat request body
type ChatRequest struct {
	Model    string                 `json:"model"`
	Messages []ChatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Format   json.RawMessage        `json:"format,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// ChatResponse is the non-streaming /api/chat response body
type ChatResponse struct {
	Model         string      `json:"model"`
	Message       ChatMessage `json:"message"`
	Done          bool        `json:"done"`
	DoneReason    string      `json:"done_reason,omitempty"`
	TotalDuration int64       `json:"total_duration,omitempty"`
	EvalCount     int         `json:"eval_count,omitempty"`
	EvalDuration  int64       `json:"eval_duration,omitempty"`
}

// Name returns the roster entry name
func (c *Client) Name() string { return c.name }

// Model returns the Ollama model tag
func (c *Client) Model() string { return c.model }

// Generate sends the prompt to /api/chat, retrying transient failures.
// The configured timeout covers every attempt.
func (c *Client) Generate(ctx context.Context, req outbound.LLMRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	format := json.RawMessage(`"json"`)
	if req.Schema.JSON != "" && json.Valid([]byte(req.Schema.JSON)) {
		format = json.RawMessage(req.Schema.JSON)
	}

	body, err := json.Marshal(ChatRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Stream: false,
		Format: format,
		Options: map[string]interface{}{
			"temperature": c.temperature,
			"num_predict": c.maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	operation := func() (string, error) {
		return c.chat(ctx, body)
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("Retrying Ollama request",
				zap.String("provider", c.name),
				zap.Duration("backoff", next),
				zap.Error(err))
		}),
	)
}

func (c *Client) chat(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", apiErr
		}
		return "", backoff.Permanent(apiErr)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if !chatResp.Done {
		return "", backoff.Permanent(fmt.Errorf("incomplete response from Ollama"))
	}
	if strings.TrimSpace(chatResp.Message.Content) == "" {
		return "", backoff.Permanent(fmt.Errorf("ollama chat: %w", outbound.ErrEmptyResponse))
	}

	c.logger.Debug("Ollama chat completion successful",
		zap.String("model", chatResp.Model),
		zap.Int64("eval_duration", chatResp.EvalDuration),
		zap.Int("eval_count", chatResp.EvalCount))

	return chatResp.Message.Content, nil
}

// HealthCheck verifies the server is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check failed with status %d", resp.StatusCode)
	}

	return nil
}
