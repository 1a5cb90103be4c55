// Package errors defines the typed errors FrameStore services return and the
// HTTP status each one maps to.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/R3E-Network/framestore/internal/app/storage"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeInvalidFormat     ErrorCode = "invalid_format"
	CodeInvalidManifest   ErrorCode = "invalid_manifest"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeInvalidToken      ErrorCode = "invalid_token"
	CodeForbidden         ErrorCode = "forbidden"
	CodeNotFound          ErrorCode = "not_found"
	CodeConflict          ErrorCode = "conflict"
	CodeRateLimitExceeded ErrorCode = "rate_limit_exceeded"
	CodeUnavailable       ErrorCode = "service_unavailable"
	CodeInternal          ErrorCode = "internal_error"
)

// ServiceError is an error with a code, a client-facing message and an HTTP
// status.
type ServiceError struct {
	Code       ErrorCode              `json:"error"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails returns a copy of e with key set in Details.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

func newError(code ErrorCode, status int, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

func BadRequest(message string) *ServiceError {
	return newError(CodeBadRequest, http.StatusBadRequest, message, nil)
}

// InvalidFormat reports a malformed request field.
func InvalidFormat(field, reason string) *ServiceError {
	return newError(CodeInvalidFormat, http.StatusBadRequest, fmt.Sprintf("invalid %s", field), nil).
		WithDetails("field", field).
		WithDetails("reason", reason)
}

// InvalidManifest carries the ordered validator messages for a rejected frame.
func InvalidManifest(problems []string) *ServiceError {
	list := append([]string(nil), problems...)
	return newError(CodeInvalidManifest, http.StatusUnprocessableEntity, "frame manifest is invalid", nil).
		WithDetails("errors", list)
}

func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "authentication required"
	}
	return newError(CodeUnauthorized, http.StatusUnauthorized, message, nil)
}

func InvalidToken(err error) *ServiceError {
	return newError(CodeInvalidToken, http.StatusUnauthorized, "invalid or expired token", err)
}

func Forbidden(message string) *ServiceError {
	return newError(CodeForbidden, http.StatusForbidden, message, nil)
}

// NotFound reports a missing resource of the given kind.
func NotFound(resource, id string) *ServiceError {
	return newError(CodeNotFound, http.StatusNotFound, fmt.Sprintf("%s not found", resource), nil).
		WithDetails("id", id)
}

func Conflict(message string) *ServiceError {
	return newError(CodeConflict, http.StatusConflict, message, nil)
}

// RateLimitExceeded reports that limit requests per window were exceeded.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return newError(CodeRateLimitExceeded, http.StatusTooManyRequests, "rate limit exceeded", nil).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

func Unavailable(message string, err error) *ServiceError {
	return newError(CodeUnavailable, http.StatusServiceUnavailable, message, err)
}

func Internal(message string, err error) *ServiceError {
	return newError(CodeInternal, http.StatusInternalServerError, message, err)
}

// GetServiceError returns the ServiceError in err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == code
}

// FromError converts any error into a ServiceError. Storage sentinels map to
// 404 and 409; everything else not already typed becomes a 500.
func FromError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	if se := GetServiceError(err); se != nil {
		return se
	}
	switch {
	case stderrors.Is(err, storage.ErrNotFound):
		return newError(CodeNotFound, http.StatusNotFound, "resource not found", err)
	case stderrors.Is(err, storage.ErrConflict):
		return newError(CodeConflict, http.StatusConflict, "resource already exists", err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return newError(CodeUnavailable, http.StatusServiceUnavailable, "request timed out", err)
	}
	return Internal("internal server error", err)
}
