package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for redcell framework errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
	CONFIG_NOT_FOUND         ErrorCode = "CONFIG_NOT_FOUND"
)

// Pipeline error codes
const (
	STAGE_FAILED     ErrorCode = "STAGE_FAILED"
	RETRY_EXHAUSTED  ErrorCode = "RETRY_EXHAUSTED"
	PIPELINE_ABORTED ErrorCode = "PIPELINE_ABORTED"
	GATE_BLOCKED     ErrorCode = "GATE_BLOCKED"
)

// Artifact and checkpoint error codes
const (
	ARTIFACT_WRITE_FAILED  ErrorCode = "ARTIFACT_WRITE_FAILED"
	ARTIFACT_READ_FAILED   ErrorCode = "ARTIFACT_READ_FAILED"
	CHECKPOINT_SAVE_FAILED ErrorCode = "CHECKPOINT_SAVE_FAILED"
	CHECKPOINT_LOAD_FAILED ErrorCode = "CHECKPOINT_LOAD_FAILED"
)

// Scope error codes
const (
	SCOPE_NOT_FOUND    ErrorCode = "SCOPE_NOT_FOUND"
	SCOPE_PARSE_FAILED ErrorCode = "SCOPE_PARSE_FAILED"
)

// RedcellError represents a structured error with error code, message, and
// optional cause. It supports error wrapping and retryability hints for
// error handling logic.
type RedcellError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *RedcellError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
func (e *RedcellError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
func (e *RedcellError) Is(target error) bool {
	var rcErr *RedcellError
	if errors.As(target, &rcErr) {
		return e.Code == rcErr.Code
	}
	return false
}

// NewError creates a new non-retryable RedcellError with the given code and message.
func NewError(code ErrorCode, message string) *RedcellError {
	return &RedcellError{
		Code:    code,
		Message: message,
	}
}

// NewRetryableError creates a new retryable RedcellError.
// Use this for transient errors that may succeed on retry.
func NewRetryableError(code ErrorCode, message string) *RedcellError {
	return &RedcellError{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// WrapError creates a new non-retryable RedcellError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *RedcellError {
	return &RedcellError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsRetryable reports whether err (or anything it wraps) is a retryable
// RedcellError.
func IsRetryable(err error) bool {
	var rcErr *RedcellError
	if errors.As(err, &rcErr) {
		return rcErr.Retryable
	}
	return false
}
