// Package errors provides structured API errors for the meal plan service.
// Domain packages return plain sentinel errors; the HTTP edge maps them onto
// AppError codes so responses stay uniform.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents an error code
type ErrorCode string

// Error codes exposed in API responses
const (
	// Client errors (4xx)
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeTooManyRequests  ErrorCode = "TOO_MANY_REQUESTS"

	// Server errors (5xx)
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeDatabaseError      ErrorCode = "DATABASE_ERROR"

	// Meal plan errors
	CodeMealPlanNotFound ErrorCode = "MEAL_PLAN_NOT_FOUND"
	CodeAccountNotFound  ErrorCode = "ACCOUNT_NOT_FOUND"
	CodeGenerationFailed  ErrorCode = "GENERATION_FAILED"
	CodeGenerationTimeout ErrorCode = "GENERATION_TIMEOUT"
	CodeSchemaMismatch    ErrorCode = "SCHEMA_MISMATCH"
)

// AppError represents an application error with structured information
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP status code for the error
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeValidationFailed, CodeSchemaMismatch:
		return http.StatusBadRequest
	case CodeNotFound, CodeMealPlanNotFound, CodeAccountNotFound:
		return http.StatusNotFound
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeGenerationFailed:
		return http.StatusBadGateway
	case CodeGenerationTimeout:
		return http.StatusGatewayTimeout
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StackTrace: getStackTrace(),
	}
}

// NewBadRequestError creates a bad request error
func NewBadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, message, "")
}

// NewValidationError creates a validation error
func NewValidationError(details string) *AppError {
	return NewAppError(CodeValidationFailed, "Validation failed", details)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeInternal, message, "")
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *AppError {
	return NewAppError(
		CodeDatabaseError,
		"Database operation failed",
		fmt.Sprintf("Failed to %s", operation),
	).WithCause(cause)
}

// NewMealPlanNotFoundError creates a meal plan not found error
func NewMealPlanNotFoundError(email string) *AppError {
	return NewAppError(
		CodeMealPlanNotFound,
		"Meal plan not found",
		fmt.Sprintf("No meal plan stored for %s", email),
	).WithMetadata("email", email)
}

// NewAccountNotFoundError creates an account not found error
func NewAccountNotFoundError(email string) *AppError {
	return NewAppError(
		CodeAccountNotFound,
		"Account not found",
		fmt.Sprintf("No profile stored for %s", email),
	).WithMetadata("email", email)
}

// NewGenerationFailedError reports that no provider produced a usable plan.
// detail describes the final failed attempt; cause is kept for errors.Is.
func NewGenerationFailedError(lastProvider string, attempts int, detail string, cause error) *AppError {
	if detail == "" {
		detail = "meal plan generation could not be completed"
	}
	return NewAppError(
		CodeGenerationFailed,
		"Meal plan generation failed",
		detail,
	).WithMetadata("last_provider", lastProvider).
		WithMetadata("attempts", attempts).
		WithCause(cause)
}

// NewGenerationTimeoutError reports that the request deadline expired before
// the roster produced a plan
func NewGenerationTimeoutError(lastProvider string, attempts int, cause error) *AppError {
	return NewAppError(
		CodeGenerationTimeout,
		"Meal plan generation timed out",
		fmt.Sprintf("request deadline expired after %d provider attempts", attempts),
	).WithMetadata("last_provider", lastProvider).
		WithMetadata("attempts", attempts).
		WithCause(cause)
}

// NewSchemaMismatchError creates an error for a caller-supplied plan with the wrong shape
func NewSchemaMismatchError(cause error) *AppError {
	return NewAppError(
		CodeSchemaMismatch,
		"Meal plan does not match the required shape",
		cause.Error(),
	).WithCause(cause)
}

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

func getStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "pkg/errors") {
			builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return builder.String()
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value,omitempty"`
	Tag     string      `json:"tag"`
	Message string      `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Message)
	}

	return strings.Join(messages, "; ")
}

// NewValidationErrors creates a validation AppError from field errors
func NewValidationErrors(errs []ValidationError) *AppError {
	validationErrs := ValidationErrors(errs)

	return NewAppError(
		CodeValidationFailed,
		"Validation failed",
		validationErrs.Error(),
	).WithMetadata("validation_errors", validationErrs)
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails represents the error details in API responses
type ErrorDetails struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// ToErrorResponse converts an AppError to an API error response
func ToErrorResponse(err *AppError, requestID string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetails{
			Code:      err.Code,
			Message:   err.Message,
			Details:   err.Details,
			Metadata:  err.Metadata,
			RequestID: requestID,
			Timestamp: fmt.Sprintf("%d", time.Now().Unix()),
		},
	}
}
