package util

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Timestamp int64          `json:"timestamp"`
	Status    int            `json:"status"`
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	Path      string         `json:"path"`
	Details   map[string]any `json:"details,omitempty"`
}

// Body renders the error for the given request path.
func (e *DomainError) Body(path string, now time.Time) ErrorBody {
	return ErrorBody{
		Timestamp: now.UnixMilli(),
		Status:    e.HTTPStatus,
		Error:     e.Code,
		Message:   e.Message,
		Path:      path,
		Details:   e.Details,
	}
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewUnprocessable(message string) error {
	return NewDomainError("UNPROCESSABLE_ENTITY", message, http.StatusUnprocessableEntity, nil)
}

func NewNotFound(resource string, details map[string]any) error {
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(code, message string, cause error) error {
	if code == "" {
		code = "UNAUTHORIZED"
	}
	return &DomainError{Code: code, Message: message, HTTPStatus: http.StatusUnauthorized, Err: cause}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError. Anything unrecognized
// becomes an internal error whose cause stays server-side.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}
