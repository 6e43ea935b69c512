package errors

import (
	"fmt"
	"net/http"
)

// AppError is the application-wide error type. Every failure that crosses a
// handler boundary (HTTP or WebSocket) is wrapped in one of these so the
// transport layer can translate it into a single observable error event.
type AppError struct {
	Raw      error
	HTTPCode int
	Code     ErrorCode
	Message  string
	Details  map[string]string
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// ErrorCode is a machine-readable class of failure. Clients use it to decide
// how to react: CAPACITY means back off, VALIDATION means fix the request.
type ErrorCode string

const (
	ErrorCode_INTERNAL       ErrorCode = "INTERNAL"
	ErrorCode_VALIDATION     ErrorCode = "VALIDATION"
	ErrorCode_NOT_FOUND      ErrorCode = "NOT_FOUND"
	ErrorCode_ALREADY_EXISTS ErrorCode = "ALREADY_EXISTS"
	ErrorCode_CAPACITY       ErrorCode = "CAPACITY"
	ErrorCode_ENGINE         ErrorCode = "ENGINE"
	ErrorCode_STORE          ErrorCode = "STORE"
)

// General Errors
func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

func ErrValidation(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_VALIDATION,
		Message:  message,
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_NOT_FOUND,
		Message:  fmt.Sprintf("%s not found", resource),
	}
}

func ErrAlreadyExists(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_ALREADY_EXISTS,
		Message:  fmt.Sprintf("%s already exists", resource),
	}
}

// ErrCapacity signals the generation scheduler refused admission. The reason
// distinguishes a full queue from a hard reject.
func ErrCapacity(reason string) AppError {
	return AppError{
		HTTPCode: http.StatusServiceUnavailable,
		Code:     ErrorCode_CAPACITY,
		Message:  fmt.Sprintf("server overloaded: %s", reason),
	}
}

// ErrEngine wraps a failure from one of the external engines (synthesis,
// transcription, response generation). stage names the engine that failed.
func ErrEngine(stage string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_ENGINE,
		Message:  fmt.Sprintf("%s engine failed", stage),
	}
}

// ErrStore wraps a persistence failure. Writes that could not be confirmed
// must surface as this, never as success.
func ErrStore(op string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_STORE,
		Message:  fmt.Sprintf("storage operation failed: %s", op),
	}
}
