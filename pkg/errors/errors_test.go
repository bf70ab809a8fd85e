package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_StatusCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NewValidationError("bad age"), http.StatusBadRequest},
		{NewSchemaMismatchError(stderrors.New("missing lunch")), http.StatusBadRequest},
		{NewMealPlanNotFoundError("a@b.com"), http.StatusNotFound},
		{NewAccountNotFoundError("a@b.com"), http.StatusNotFound},
		{NewGenerationFailedError("p3", 3, "timeout", nil), http.StatusBadGateway},
		{NewGenerationTimeoutError("p2", 2, nil), http.StatusGatewayTimeout},
		{NewDatabaseError("store meal plan", stderrors.New("locked")), http.StatusInternalServerError},
		{NewInternalError(""), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("PlainErrorBecomesInternal", func(t *testing.T) {
		cause := stderrors.New("boom")

		wrapped := Wrap(cause, "failed")

		assert.Equal(t, CodeInternal, wrapped.Code)
		assert.ErrorIs(t, wrapped, cause)
	})

	t.Run("WrappedAppErrorIsReturned", func(t *testing.T) {
		original := NewMealPlanNotFoundError("a@b.com")

		wrapped := Wrap(fmt.Errorf("lookup: %w", original), "failed")

		assert.Same(t, original, wrapped)
	})

	t.Run("Nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "failed"))
	})
}

func TestGenerationFailedError_KeepsCause(t *testing.T) {
	sentinel := stderrors.New("all failed")

	err := NewGenerationFailedError("gemma2", 5, "", sentinel)

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, "gemma2", err.Metadata["last_provider"])
	assert.Equal(t, 5, err.Metadata["attempts"])
	assert.NotEmpty(t, err.Details)
}

func TestToErrorResponse(t *testing.T) {
	err := NewValidationErrors([]ValidationError{
		{Field: "age", Tag: "gt", Message: "age must be greater than 0"},
		{Field: "height", Tag: "gt", Message: "height must be greater than 0"},
	})

	resp := ToErrorResponse(err, "req-1")

	require.Equal(t, CodeValidationFailed, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Equal(t, "age must be greater than 0; height must be greater than 0", resp.Error.Details)
	assert.NotEmpty(t, resp.Error.Timestamp)
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeMealPlanNotFound, GetCode(fmt.Errorf("x: %w", NewMealPlanNotFoundError("a"))))
	assert.Equal(t, CodeInternal, GetCode(stderrors.New("plain")))
	assert.True(t, Is(NewValidationError("x"), CodeValidationFailed))
}
