// Package errors provides the standardized error taxonomy for the query
// pipeline.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeRecognitionLowConfidence ErrorCode = "RECOGNITION_LOW_CONFIDENCE"
	ErrCodeTranscriptionFailed      ErrorCode = "TRANSCRIPTION_FAILED"
	ErrCodeTranslationFailed        ErrorCode = "TRANSLATION_FAILED"

	ErrCodeSynthesisFailed    ErrorCode = "SYNTHESIS_FAILED"
	ErrCodeGenerationTimeout  ErrorCode = "GENERATION_TIMEOUT"
	ErrCodeValidationRejected ErrorCode = "VALIDATION_REJECTED"
	ErrCodeCannotAnswer       ErrorCode = "CANNOT_ANSWER"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeCacheUnavailable         ErrorCode = "CACHE_UNAVAILABLE"

	ErrCodeConfigLoadError ErrorCode = "CONFIG_LOAD_ERROR"
	ErrCodeSchemaInvalid   ErrorCode = "SCHEMA_INVALID"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewRecognitionLowConfidenceError flags a transcript below the confidence
// threshold. Recovered: the pipeline proceeds best-effort.
func NewRecognitionLowConfidenceError(confidence float64) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecognitionLowConfidence,
		Message:   "Transcript confidence below threshold",
		Details:   fmt.Sprintf("confidence: %.2f", confidence),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTranscriptionFailedError creates a retryable speech-service error.
func NewTranscriptionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTranscriptionFailed,
		Message:   "Speech transcription service error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTranslationFailedError creates a retryable translation-service error.
func NewTranslationFailedError(pair string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTranslationFailed,
		Message:   "Translation service error",
		Details:   fmt.Sprintf("pair: %s, error: %s", pair, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSynthesisFailedError marks both synthesis paths exhausted.
func NewSynthesisFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSynthesisFailed,
		Message:   "Could not synthesize a query for the request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationTimeoutError creates a retryable generative-model timeout.
func NewGenerationTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationTimeout,
		Message:   "SQL generation model timeout",
		Details:   "model call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationRejectedError wraps a validator rejection. This is a normal
// outcome, never retried, surfaced as a declined-query response.
func NewValidationRejectedError(reason, detail string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationRejected,
		Message:   "Query declined by the safety validator",
		Details:   fmt.Sprintf("reason: %s, detail: %s", reason, detail),
		Retryable: false,
		Metadata:  map[string]interface{}{"reason": reason},
		Timestamp: time.Now().UTC(),
	}
}

// NewCannotAnswerError is the user-facing terminal outcome when no safe query
// could be produced.
func NewCannotAnswerError(details string, suggestions []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCannotAnswer,
		Message:   "The assistant cannot answer this request",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"suggestions": suggestions},
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable execution error.
func NewQueryExecutionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Query execution error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a query timeout error.
func NewQueryTimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Query execution timeout",
		Details:   fmt.Sprintf("timeout: %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError marks a degraded (not failed) cache lookup.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Result cache unavailable, executed directly",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigLoadError is fatal at startup only.
func NewConfigLoadError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigLoadError,
		Message:   "Configuration load failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSchemaInvalidError is fatal at startup only.
func NewSchemaInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaInvalid,
		Message:   "Schema catalog is inconsistent",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Retry Policy
// ==========================

// GetRetryCount returns the bounded retry budget for a code. Deterministic
// stages never retry; only collaborator and executor transients do.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeTranscriptionFailed,
		ErrCodeTranslationFailed:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeGenerationTimeout:
		return 1

	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "RECOGNITION") || strings.Contains(codeStr, "TRANSCRIPTION") || strings.Contains(codeStr, "TRANSLATION"):
		return "SPEECH"
	case strings.Contains(codeStr, "SYNTHESIS") || strings.Contains(codeStr, "GENERATION"):
		return "SYNTHESIS"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "CANNOT"):
		return "VALIDATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "CACHE"):
		return "EXECUTION"
	case strings.Contains(codeStr, "CONFIG") || strings.Contains(codeStr, "SCHEMA"):
		return "STARTUP"
	default:
		return "OTHER"
	}
}
