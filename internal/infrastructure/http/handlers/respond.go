// Package handlers provides HTTP handlers for the meal plan REST API
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/nutriplan/mealplan/pkg/errors"
	"go.uber.org/zap"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeError maps err to an AppError and writes the error envelope
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.NewInternalError("").WithCause(err)
	}

	status := appErr.StatusCode()
	requestID := chimiddleware.GetReqID(r.Context())
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("code", string(appErr.Code)),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", fields...)
	} else {
		logger.Info("Request rejected", fields...)
	}

	writeJSON(w, logger, status, errors.ToErrorResponse(appErr, requestID))
}

// decodeJSON decodes a request body into dst
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return errors.NewBadRequestError("Request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return errors.NewBadRequestError("Request body too large")
		}
		return errors.NewAppError(errors.CodeBadRequest, "Malformed JSON body", err.Error())
	}
	return nil
}
