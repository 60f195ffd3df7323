// Package errors defines the typed service errors surfaced by the REST API.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code classifies a service error.
type Code string

const (
	CodeValidation      Code = "VALIDATION"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

// ServiceError carries the HTTP status and client-facing message for a failure.
type ServiceError struct {
	Code       Code
	HTTPStatus int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Validation signals malformed or missing input. The message names the first
// violated rule.
func Validation(message string) *ServiceError {
	return &ServiceError{Code: CodeValidation, HTTPStatus: http.StatusUnprocessableEntity, Message: message}
}

// BadRequest signals a malformed request body or missing required field.
func BadRequest(message string) *ServiceError {
	return &ServiceError{Code: CodeValidation, HTTPStatus: http.StatusBadRequest, Message: message}
}

// Unauthenticated signals a missing, malformed, expired, or revoked token.
func Unauthenticated(message string) *ServiceError {
	return &ServiceError{Code: CodeUnauthenticated, HTTPStatus: http.StatusUnauthorized, Message: message}
}

// Forbidden signals an authenticated caller with insufficient privilege.
func Forbidden(message string) *ServiceError {
	return &ServiceError{Code: CodeForbidden, HTTPStatus: http.StatusForbidden, Message: message}
}

// NotFound signals an absent entity.
func NotFound(message string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, HTTPStatus: http.StatusNotFound, Message: message}
}

// Conflict signals a uniqueness violation. Clients receive it as 400.
func Conflict(message string) *ServiceError {
	return &ServiceError{Code: CodeConflict, HTTPStatus: http.StatusBadRequest, Message: message}
}

// Internal signals a store or hashing failure.
func Internal(message string, err error) *ServiceError {
	return &ServiceError{Code: CodeInternal, HTTPStatus: http.StatusInternalServerError, Message: message, Err: err}
}

// GetServiceError extracts a *ServiceError from err, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// Status returns the HTTP status for err, defaulting to 500.
func Status(err error) int {
	if se := GetServiceError(err); se != nil {
		return se.HTTPStatus
	}
	return http.StatusInternalServerError
}
