// Package errors provides the standardized error taxonomy for the matching
// engine. Every code here is recoverable at the engine level; none should
// crash the process.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodePermissionDenied    ErrorCode = "PERMISSION_DENIED"
	ErrCodeLocationUnavailable ErrorCode = "LOCATION_UNAVAILABLE"
	ErrCodeLocationTimeout     ErrorCode = "LOCATION_TIMEOUT"
	ErrCodeQueryFailed         ErrorCode = "QUERY_FAILED"
	ErrCodeProfileIncomplete   ErrorCode = "PROFILE_INCOMPLETE"

	ErrCodeProfileFetchFailed     ErrorCode = "PROFILE_FETCH_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error. Retryable means
// the next scheduled cycle is a natural retry; non-retryable codes abort a
// start attempt and surface to the caller for user-facing messaging.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// NewPermissionDeniedError creates a non-retryable location permission error.
func NewPermissionDeniedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePermissionDenied,
		Message:   "Location permission denied by user",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLocationUnavailableError creates a non-retryable positioning error.
func NewLocationUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLocationUnavailable,
		Message:   "No positioning capability available",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLocationTimeoutError creates a retryable location acquisition timeout.
func NewLocationTimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeLocationTimeout,
		Message:   "Location acquisition timed out",
		Details:   fmt.Sprintf("timeout: %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryFailedError creates a retryable proximity query error. The caller
// must treat it as "no candidates this cycle", not "zero matches".
func NewQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryFailed,
		Message:   "Proximity query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewProfileIncompleteError creates a non-retryable profile completeness
// error. Re-checked only on explicit restart, never polled.
func NewProfileIncompleteError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileIncomplete,
		Message:   "Profile has no interests, matching cannot start",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProfileFetchFailedError creates a retryable profile store error.
func NewProfileFetchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileFetchFailed,
		Message:   "Failed to read profile snapshot",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewNotificationSendFailedError creates a retryable notification delivery
// error. Delivery failures never roll back match state.
func NewNotificationSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether the engine may swallow err and rely on the next
// scheduled cycle as the retry.
func IsRetryable(err error) bool {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se.Retryable
	}
	return false
}
