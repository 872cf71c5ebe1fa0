package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Meishi error code.
type ErrorCode string

const (
	ErrUnsupportedFormat      ErrorCode = "UNSUPPORTED_FORMAT"       // 415
	ErrEmptyInput             ErrorCode = "EMPTY_INPUT"              // 400
	ErrUnrecognizedSchema     ErrorCode = "UNRECOGNIZED_SCHEMA"      // 422
	ErrMalformedRow           ErrorCode = "MALFORMED_ROW"            // 422 (reserved; rows are decoded leniently)
	ErrExternalServiceFailure ErrorCode = "EXTERNAL_SERVICE_FAILURE" // 502
	ErrPersistenceFailure     ErrorCode = "PERSISTENCE_FAILURE"      // 500
	ErrInvalidRequest         ErrorCode = "INVALID_REQUEST"          // 400
	ErrNotFound               ErrorCode = "NOT_FOUND"                // 404
	ErrFileNotFound           ErrorCode = "FILE_NOT_FOUND"           // 404
	ErrCancelled              ErrorCode = "CANCELLED"                // 499
	ErrInternal               ErrorCode = "INTERNAL"                 // 500
)

// MeishiError represents a structured error with code, status, and details.
type MeishiError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *MeishiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *MeishiError) Unwrap() error {
	return e.cause
}

// NewUnsupportedFormat creates a 415 error for a file extension that is neither .csv nor .txt.
func NewUnsupportedFormat(filename string) *MeishiError {
	return &MeishiError{
		Code:    ErrUnsupportedFormat,
		Status:  415,
		Message: fmt.Sprintf("unsupported file format: %s (use a .csv or .txt file)", filename),
		Details: map[string]any{"filename": filename},
	}
}

// NewEmptyInput creates a 400 error for a file with no content after trimming.
func NewEmptyInput(filename string) *MeishiError {
	return &MeishiError{
		Code:    ErrEmptyInput,
		Status:  400,
		Message: fmt.Sprintf("file is empty: %s", filename),
		Details: map[string]any{"filename": filename},
	}
}

// NewUnrecognizedSchema creates a 422 error when neither contact nor policy layout matches.
func NewUnrecognizedSchema(filename string) *MeishiError {
	return &MeishiError{
		Code:    ErrUnrecognizedSchema,
		Status:  422,
		Message: fmt.Sprintf("file layout matches neither contact nor policy records: %s", filename),
		Details: map[string]any{"filename": filename},
	}
}

// NewMalformedRow creates a 422 error for a row that cannot be decoded.
// The decoder is lenient and does not raise it today.
func NewMalformedRow(line int, msg string) *MeishiError {
	return &MeishiError{
		Code:    ErrMalformedRow,
		Status:  422,
		Message: fmt.Sprintf("malformed row %d: %s", line, msg),
		Details: map[string]any{"line": line},
	}
}

// NewExternalServiceFailure creates a 502 error for a failed or unparseable collaborator call.
func NewExternalServiceFailure(service string, err error) *MeishiError {
	msg := "call failed"
	if err != nil {
		msg = err.Error()
	}
	return &MeishiError{
		Code:    ErrExternalServiceFailure,
		Status:  502,
		Message: fmt.Sprintf("%s: %s", service, msg),
		Details: map[string]any{"service": service},
		cause:   err,
	}
}

// NewPersistenceFailure creates a 500 error for a failed durable store write.
func NewPersistenceFailure(key string, err error) *MeishiError {
	msg := "write failed"
	if err != nil {
		msg = err.Error()
	}
	return &MeishiError{
		Code:    ErrPersistenceFailure,
		Status:  500,
		Message: fmt.Sprintf("failed to persist %s: %s", key, msg),
		Details: map[string]any{"key": key},
		cause:   err,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *MeishiError {
	return &MeishiError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a record cannot be found.
func NewNotFound(kind, identifier string) *MeishiError {
	return &MeishiError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *MeishiError {
	return &MeishiError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewCancelled creates a 499 error when an operation is cancelled via context.
func NewCancelled(operation string) *MeishiError {
	return &MeishiError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *MeishiError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &MeishiError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error (or anything it wraps) is a MeishiError with the given code.
func Is(err error, code ErrorCode) bool {
	var mErr *MeishiError
	if stderrors.As(err, &mErr) {
		return mErr.Code == code
	}
	return false
}

// As returns the MeishiError in err's chain, if any.
func As(err error) (*MeishiError, bool) {
	var mErr *MeishiError
	if stderrors.As(err, &mErr) {
		return mErr, true
	}
	return nil, false
}
