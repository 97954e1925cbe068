package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Pipeline errors
	CodeAdapterError    = "ADAPTER_ERROR"
	CodeEmbeddingError  = "EMBEDDING_ERROR"
	CodeStorageConflict = "STORAGE_CONFLICT"
	CodeAlreadyRunning  = "ALREADY_RUNNING"

	// Validation errors
	CodeBadRequest   = "BAD_REQUEST"
	CodeInvalidInput = "INVALID_INPUT"
	CodeMissingField = "MISSING_FIELD"

	// Resource errors
	CodeNotFound = "NOT_FOUND"
	CodeConflict = "CONFLICT"

	// External errors
	CodeDatabaseError = "DATABASE_ERROR"
	CodeExternalError = "EXTERNAL_ERROR"

	// Internal errors
	CodeInternalError = "INTERNAL_ERROR"
	CodeConfigError   = "CONFIG_ERROR"
	CodeTimeout       = "TIMEOUT"
)

// AppError represents a structured application error
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// HTTPStatus returns the HTTP status code
func (e *AppError) HTTPStatus() int {
	return e.Status
}

// Constructor functions
func New(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

func Wrap(err error, code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Pipeline errors

// AdapterError wraps a scraping/fetch failure of one portal adapter.
// Contained per adapter; other adapters in the run keep going.
func AdapterError(portal string, err error) *AppError {
	return &AppError{
		Code:    CodeAdapterError,
		Message: fmt.Sprintf("portal adapter failed: %s", portal),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"portal": portal},
		Err:     err,
	}
}

// EmbeddingError marks a record or rule as unclassifiable. Fatal for that
// record only, never for the batch.
func EmbeddingError(reason string, err error) *AppError {
	return &AppError{
		Code:    CodeEmbeddingError,
		Message: fmt.Sprintf("embedding failed: %s", reason),
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// StorageConflict reports a duplicate-key race at insert. Logged as a skip.
func StorageConflict(key string) *AppError {
	return &AppError{
		Code:    CodeStorageConflict,
		Message: fmt.Sprintf("duplicate key: %s", key),
		Status:  http.StatusConflict,
		Details: map[string]any{"key": key},
	}
}

// AlreadyRunning is the only whole-operation error in the pipeline: a run or
// reprocess attempted while the shared guard is held.
func AlreadyRunning(kind string) *AppError {
	return &AppError{
		Code:    CodeAlreadyRunning,
		Message: fmt.Sprintf("%s already in progress", kind),
		Status:  http.StatusConflict,
		Details: map[string]any{"kind": kind},
	}
}

// Validation errors
func BadRequest(message string) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func InvalidInput(field, reason string) *AppError {
	return &AppError{
		Code:    CodeInvalidInput,
		Message: fmt.Sprintf("invalid input for '%s': %s", field, reason),
		Status:  http.StatusBadRequest,
		Details: map[string]any{"field": field},
	}
}

func MissingField(field string) *AppError {
	return &AppError{
		Code:    CodeMissingField,
		Message: fmt.Sprintf("missing required field: %s", field),
		Status:  http.StatusBadRequest,
		Details: map[string]any{"field": field},
	}
}

// Resource errors
func NotFound(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
		Status:  http.StatusConflict,
	}
}

// External errors
func DatabaseError(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeDatabaseError,
		Message: fmt.Sprintf("database error: %s", operation),
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func ExternalError(service string, err error) *AppError {
	return &AppError{
		Code:    CodeExternalError,
		Message: fmt.Sprintf("external service error: %s", service),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"service": service},
		Err:     err,
	}
}

// Internal errors
func Internal(message string) *AppError {
	if message == "" {
		message = "internal server error"
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

func InternalWithError(err error) *AppError {
	return &AppError{
		Code:    CodeInternalError,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// ConfigError reports a malformed persisted setting. Callers fall back to
// documented defaults instead of failing.
func ConfigError(key string) *AppError {
	return &AppError{
		Code:    CodeConfigError,
		Message: fmt.Sprintf("malformed setting: %s", key),
		Status:  http.StatusInternalServerError,
		Details: map[string]any{"key": key},
	}
}

func Timeout(operation string) *AppError {
	return &AppError{
		Code:    CodeTimeout,
		Message: fmt.Sprintf("operation timed out: %s", operation),
		Status:  http.StatusGatewayTimeout,
	}
}

// Common error instances
var (
	ErrNotFound   = NotFound("resource")
	ErrBadRequest = BadRequest("bad request")
	ErrInternal   = Internal("")
	ErrConflict   = Conflict("resource conflict")
)

// Helper functions
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalWithError(err)
}

// IsCode reports whether err carries the given application error code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
