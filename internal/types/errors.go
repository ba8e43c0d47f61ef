package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for engine errors.
type ErrorCode string

// Graph error codes
const (
	GRAPH_CYCLE_DETECTED ErrorCode = "GRAPH_CYCLE_DETECTED"
	GRAPH_UNKNOWN_ITEM   ErrorCode = "GRAPH_UNKNOWN_ITEM"
	GRAPH_DUPLICATE_ITEM ErrorCode = "GRAPH_DUPLICATE_ITEM"
)

// Validation error codes
const (
	VALIDATION_SCHEMA_MISMATCH ErrorCode = "VALIDATION_SCHEMA_MISMATCH"
	VALIDATION_PHASE_ORDER     ErrorCode = "VALIDATION_PHASE_ORDER"
)

// Execution error codes
const (
	EXECUTION_TIMEOUT       ErrorCode = "EXECUTION_TIMEOUT"
	EXECUTION_NON_ZERO_EXIT ErrorCode = "EXECUTION_NON_ZERO_EXIT"
	EXECUTION_SPAWN_FAILED  ErrorCode = "EXECUTION_SPAWN_FAILED"
	EXECUTION_PARSE_FAILURE ErrorCode = "EXECUTION_PARSE_FAILURE"
)

// Verification error codes
const (
	VERIFICATION_TESTS_FAILED ErrorCode = "VERIFICATION_TESTS_FAILED"
)

// Limit error codes
const (
	LIMIT_MAX_ITERATIONS           ErrorCode = "LIMIT_MAX_ITERATIONS"
	LIMIT_MAX_CONSECUTIVE_FAILURES ErrorCode = "LIMIT_MAX_CONSECUTIVE_FAILURES"
)

// Tracker error codes
const (
	TRACKER_COMMAND_FAILED ErrorCode = "TRACKER_COMMAND_FAILED"
	TRACKER_PARSE_FAILED   ErrorCode = "TRACKER_PARSE_FAILED"
	TRACKER_ITEM_NOT_FOUND ErrorCode = "TRACKER_ITEM_NOT_FOUND"
)

// Checkpoint error codes
const (
	CHECKPOINT_WRITE_FAILED     ErrorCode = "CHECKPOINT_WRITE_FAILED"
	CHECKPOINT_CORRUPT          ErrorCode = "CHECKPOINT_CORRUPT"
	CHECKPOINT_VERSION_MISMATCH ErrorCode = "CHECKPOINT_VERSION_MISMATCH"
	CHECKPOINT_CONFIRM_REQUIRED ErrorCode = "CHECKPOINT_CONFIRM_REQUIRED"
)

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// EngineError is a structured error with a namespaced code, message, and
// optional cause. It supports error wrapping and a retryability hint so the
// loop controller can distinguish transient failures from permanent ones.
type EngineError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error returns "[CODE] message" or "[CODE] message: cause" when a cause exists.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/errors.As chains.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is matches by error code so callers can compare against sentinel codes.
func (e *EngineError) Is(target error) bool {
	var engineErr *EngineError
	if errors.As(target, &engineErr) {
		return e.Code == engineErr.Code
	}
	return false
}

// NewError creates a non-retryable EngineError.
func NewError(code ErrorCode, message string) *EngineError {
	return &EngineError{Code: code, Message: message}
}

// NewRetryableError creates a retryable EngineError. Use for transient
// failures that may succeed with a larger budget, such as session timeouts.
func NewRetryableError(code ErrorCode, message string) *EngineError {
	return &EngineError{Code: code, Message: message, Retryable: true}
}

// WrapError creates a non-retryable EngineError wrapping an existing error.
func WrapError(code ErrorCode, message string, cause error) *EngineError {
	return &EngineError{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the ErrorCode from err, or empty when err is not an EngineError.
func CodeOf(err error) ErrorCode {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Code
	}
	return ""
}

// IsFatal reports whether err must halt the run immediately. Graph and
// validation errors are fatal; execution and verification errors are recorded
// per item and only halt once the consecutive-failure threshold is reached.
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case GRAPH_CYCLE_DETECTED, GRAPH_UNKNOWN_ITEM, GRAPH_DUPLICATE_ITEM,
		VALIDATION_SCHEMA_MISMATCH, VALIDATION_PHASE_ORDER:
		return true
	}
	return false
}

// IsRetryable reports whether err carries the retryable hint.
func IsRetryable(err error) bool {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Retryable
	}
	return false
}
