package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"babelBridge/api/dto"
	"babelBridge/api/service"
	"babelBridge/api/validation"
	"babelBridge/worker/pool"
	"babelBridge/worker/translator"
)

// statusFor maps pipeline errors to an HTTP status, an error code and a
// caller-facing message.
func statusFor(err error) (int, string, string) {
	var toolErr *translator.ToolError
	switch {
	case errors.Is(err, validation.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Upload too large"
	case errors.Is(err, validation.ErrMissingFile),
		errors.Is(err, validation.ErrMissingField),
		errors.Is(err, validation.ErrInvalidWordCount),
		errors.Is(err, validation.ErrInvalidLanguage),
		errors.Is(err, validation.ErrMalformedForm):
		return http.StatusBadRequest, "BAD_REQUEST", "Invalid request"
	case errors.Is(err, dto.ErrJobNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Job not found"
	case errors.As(err, &toolErr):
		return http.StatusInternalServerError, "TRANSLATION_FAILED", "Translation failed"
	case errors.Is(err, translator.ErrOutputNotFound):
		return http.StatusInternalServerError, "OUTPUT_NOT_FOUND", "Translated file not found"
	case errors.Is(err, pool.ErrQueueFull), errors.Is(err, pool.ErrClosed):
		return http.StatusServiceUnavailable, "QUEUE_FULL", "Server is busy, try again later"
	case errors.Is(err, pool.ErrJobTimeout):
		return http.StatusGatewayTimeout, "TIMEOUT", "Translation timed out"
	case errors.Is(err, context.Canceled):
		// nginx's "client closed request"; the client is usually gone anyway.
		return 499, "CANCELLED", "Request cancelled"
	case errors.Is(err, service.ErrStaging):
		return http.StatusInternalServerError, "STAGING_FAILED", "Failed to stage upload"
	default:
		return http.StatusInternalServerError, "INTERNAL", "Internal server error"
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, traceID string, err error) {
	status, code, message := statusFor(err)

	fields := []zap.Field{
		zap.String("trace_id", traceID),
		zap.String("code", code),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error(message, fields...)
	} else {
		logger.Warn(message, fields...)
	}

	respondJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Detail:  err.Error(),
		Code:    code,
		TraceID: traceID,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
