// internal/common/errors/handler.go
package errors

import (
	"net/http"
	"time"
)

// ErrorHandler normalizes pipeline errors into user-facing API responses.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// APIError is the wire shape sent to the presentation layer on any declined
// or failed request.
type APIError struct {
	Code        string    `json:"code"`
	Message     string    `json:"message"`
	Details     string    `json:"details,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Declined    bool      `json:"declined"`
	Timestamp   time.Time `json:"timestamp"`
}

// HandleRequestError converts any error into an HTTP status and APIError.
// Validator rejections and cannot-answer outcomes are declined queries (200
// with declined=true per the presentation contract), not system failures.
func (h *ErrorHandler) HandleRequestError(requestID string, err error) (int, *APIError) {
	stdErr := h.normalizeError(err)

	apiErr := &APIError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Timestamp: stdErr.Timestamp,
	}
	if s, ok := stdErr.Metadata["suggestions"].([]string); ok {
		apiErr.Suggestions = s
	}

	switch stdErr.Code {
	case ErrCodeValidationRejected, ErrCodeCannotAnswer:
		apiErr.Declined = true
		h.logger.Warn("query declined", map[string]interface{}{
			"requestId": requestID,
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
			"category":  GetErrorCategory(stdErr.Code),
		})
		return http.StatusOK, apiErr

	case ErrCodeQueryTimeout:
		h.logError(requestID, stdErr)
		return http.StatusGatewayTimeout, apiErr

	case ErrCodeConfigLoadError, ErrCodeSchemaInvalid:
		h.logError(requestID, stdErr)
		return http.StatusInternalServerError, apiErr

	default:
		h.logError(requestID, stdErr)
		if stdErr.Retryable {
			return http.StatusServiceUnavailable, apiErr
		}
		return http.StatusInternalServerError, apiErr
	}
}

// normalizeError ensures we always have a StandardError.
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func (h *ErrorHandler) logError(requestID string, stdErr *StandardError) {
	h.logger.Error("request failed", map[string]interface{}{
		"requestId": requestID,
		"errorCode": string(stdErr.Code),
		"message":   stdErr.Message,
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
		"category":  GetErrorCategory(stdErr.Code),
	})
}
