package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a tracker error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"    // 401
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrConflict       ErrorCode = "CONFLICT"        // 409
	ErrValidation     ErrorCode = "VALIDATION"      // 422
	ErrNoUpdates      ErrorCode = "NO_UPDATES"      // 422
	ErrRateLimited    ErrorCode = "RATE_LIMITED"    // 429
	ErrConfiguration  ErrorCode = "CONFIGURATION"   // 500
	ErrInternal       ErrorCode = "INTERNAL"        // 500
	ErrTransport      ErrorCode = "TRANSPORT"       // 502
	ErrExtraction     ErrorCode = "EXTRACTION"      // 502
)

// TrackerError represents a structured error with code, status, and details.
// Err holds the underlying cause when there is one.
type TrackerError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *TrackerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *TrackerError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *TrackerError {
	return &TrackerError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnauthorized creates a 401 error.
func NewUnauthorized(msg string) *TrackerError {
	return &TrackerError{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when an item cannot be found.
func NewNotFound(id string) *TrackerError {
	return &TrackerError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("Item with id %s not found", id),
		Details: map[string]any{"id": id},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *TrackerError {
	return &TrackerError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewConflict creates a 409 error, used when an id is already taken.
func NewConflict(msg string) *TrackerError {
	return &TrackerError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewValidation creates a 422 error for a record that fails schema rules.
// field may be empty when the failure is not tied to one field.
func NewValidation(field, msg string) *TrackerError {
	e := &TrackerError{
		Code:    ErrValidation,
		Status:  422,
		Message: msg,
	}
	if field != "" {
		e.Details = map[string]any{"field": field}
	}
	return e
}

// NewNoUpdates creates the semantic error for an edit that changes nothing.
func NewNoUpdates() *TrackerError {
	return &TrackerError{
		Code:    ErrNoUpdates,
		Status:  422,
		Message: "No fields to update",
	}
}

// NewRateLimited creates a 429 error.
func NewRateLimited(retryAfter int) *TrackerError {
	return &TrackerError{
		Code:    ErrRateLimited,
		Status:  429,
		Message: "too many requests, please try again later",
		Details: map[string]any{"retry_after": retryAfter},
	}
}

// NewConfiguration creates an error for an unusable provider configuration.
func NewConfiguration(msg string) *TrackerError {
	return &TrackerError{
		Code:    ErrConfiguration,
		Status:  500,
		Message: msg,
	}
}

// NewTransport creates an error for a failed round trip to a model backend.
// status is the HTTP status when one was received, 0 otherwise.
func NewTransport(status int, err error) *TrackerError {
	e := &TrackerError{
		Code:   ErrTransport,
		Status: 502,
		Err:    err,
	}
	if status != 0 {
		e.Message = fmt.Sprintf("LLM request failed (%d)", status)
		e.Details = map[string]any{"upstream_status": status}
	} else {
		e.Message = "LLM request failed"
		if err != nil {
			e.Message = fmt.Sprintf("LLM request failed: %v", err)
		}
	}
	return e
}

// NewExtraction creates an error for a model reply without a usable JSON object.
func NewExtraction(msg string, err error) *TrackerError {
	return &TrackerError{
		Code:    ErrExtraction,
		Status:  502,
		Message: msg,
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *TrackerError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &TrackerError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if err is, or wraps, a TrackerError with the given code.
func Is(err error, code ErrorCode) bool {
	var tErr *TrackerError
	if stderrors.As(err, &tErr) {
		return tErr.Code == code
	}
	return false
}

// As returns the TrackerError in err's chain, or nil.
func As(err error) *TrackerError {
	var tErr *TrackerError
	if stderrors.As(err, &tErr) {
		return tErr
	}
	return nil
}
