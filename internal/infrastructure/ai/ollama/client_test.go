package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nutriplan/mealplan/internal/infrastructure/config"
	"github.com/nutriplan/mealplan/internal/ports/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, url string, retries int) *Client {
	return newTimedClient(t, url, retries, 5*time.Second)
}

func newTimedClient(t *testing.T, url string, retries int, timeout time.Duration) *Client {
	return NewClient(config.ProviderConfig{
		Name:        "local",
		Kind:        config.ProviderKindOllama,
		Model:       "llama3.1",
		BaseURL:     url,
		Temperature: 0.2,
		MaxTokens:   1024,
		Timeout:     timeout,
		MaxRetries:  retries,
	}, zaptest.NewLogger(t))
}

func TestGenerate_SendsSchemaAndReturnsContent(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Model:   "llama3.1",
			Message: ChatMessage{Role: "assistant", Content: `{"total_calories":2000}`},
			Done:    true,
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0)
	text, err := client.Generate(context.Background(), outbound.LLMRequest{
		System: "sys",
		User:   "usr",
		Schema: outbound.OutputSchema{JSON: `{"type":"object"}`},
	})

	require.NoError(t, err)
	assert.Equal(t, `{"total_calories":2000}`, text)
	assert.Equal(t, "llama3.1", got.Model)
	assert.False(t, got.Stream)
	assert.JSONEq(t, `{"type":"object"}`, string(got.Format))
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "usr", got.Messages[1].Content)
	assert.InDelta(t, 0.2, got.Options["temperature"], 1e-9)
}

func TestGenerate_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{Message: ChatMessage{Content: "{}"}, Done: true})
	}))
	defer srv.Close()

	text, err := newTestClient(t, srv.URL, 1).Generate(context.Background(), outbound.LLMRequest{})

	require.NoError(t, err)
	assert.Equal(t, "{}", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGenerate_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 2).Generate(context.Background(), outbound.LLMRequest{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGenerate_EmptyCompletionFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ChatResponse{Done: true})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 0).Generate(context.Background(), outbound.LLMRequest{})

	assert.ErrorIs(t, err, outbound.ErrEmptyResponse)
}

func TestGenerate_TimeoutCoversRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	start := time.Now()
	_, err := newTimedClient(t, srv.URL, 10, 300*time.Millisecond).Generate(context.Background(), outbound.LLMRequest{})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Less(t, atomic.LoadInt32(&calls), int32(11))
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.NoError(t, newTestClient(t, srv.URL, 0).HealthCheck(context.Background()))
}
