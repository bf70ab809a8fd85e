package generation

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

var (
	// ErrSchemaMismatch is wrapped by every validation failure of model output
	ErrSchemaMismatch = errors.New("response does not match the meal plan schema")
	// ErrAllProvidersExhausted matches any *ExhaustedError via errors.Is
	ErrAllProvidersExhausted = errors.New("all meal plan providers failed")
)

// ProviderError is a failed call to a single provider
type ProviderError struct {
	Provider string
	Model    string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s (%s): %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Attempt records the outcome of one provider in the roster
type Attempt struct {
	Provider string
	Model    string
	Err      error
	Duration time.Duration
}

// ExhaustedError is returned when no provider produced a valid plan.
// Unwrap yields the last failure so callers can inspect it.
type ExhaustedError struct {
	Attempts []Attempt
	Last     error
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		if e.Last != nil {
			return fmt.Sprintf("%s: %v", ErrAllProvidersExhausted, e.Last)
		}
		return ErrAllProvidersExhausted.Error() + ": no providers configured"
	}
	var combined error
	for _, a := range e.Attempts {
		combined = multierr.Append(combined, a.Err)
	}
	if e.Last != nil && !errors.Is(combined, e.Last) {
		combined = multierr.Append(combined, e.Last)
	}
	return fmt.Sprintf("%s after %d attempts: %v", ErrAllProvidersExhausted, len(e.Attempts), combined)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Is reports ErrAllProvidersExhausted as a match
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllProvidersExhausted
}

// LastProvider names the provider of the final attempt, if any
func (e *ExhaustedError) LastProvider() string {
	if len(e.Attempts) == 0 {
		return ""
	}
	return e.Attempts[len(e.Attempts)-1].Provider
}
