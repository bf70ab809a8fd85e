package outbound

import (
	"context"
	"errors"
)

// ErrEmptyResponse is wrapped by adapters when a completion carries no text
var ErrEmptyResponse = errors.New("provider returned an empty response")

// OutputSchema describes the JSON document a provider must return
type OutputSchema struct {
	Name        string
	Description string
	// JSON is a JSON Schema document for the expected object
	JSON string
}

// LLMRequest is one rendered prompt sent to a provider
type LLMRequest struct {
	System string
	User   string
	Schema OutputSchema
}

// LLMProvider is a single configured model backend.
// Generate is one logical call: implementations own their retries and
// return the raw model text, or an error for any transport failure,
// non-2xx response, refusal or empty completion.
type LLMProvider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req LLMRequest) (string, error)
	HealthCheck(ctx context.Context) error
}
