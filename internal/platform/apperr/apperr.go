// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the error taxonomy shared by the storefront and the admin panel.

Every failure that crosses a package boundary is one of four kinds:

  - Not found: a single-record read returned zero rows.
  - Validation: required input is missing, detected before any network call.
  - Remote: the backend rejected or failed an operation. Its message is shown verbatim
    in admin forms and never on public pages.
  - Auth: sign-in or a protected operation was refused.

Anything else is wrapped as [Internal] so the cause reaches the logs but not the page.
None of them is fatal after startup.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the canonical error type of the application.
//
// # Security
//
// The Cause field is for server-side logging only. Pages render Message.
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "REMOTE_ERROR").
	Code string `json:"code"`
	// Message is a human-readable description safe to render.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the form field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// Is matches two AppErrors by code, so sentinel comparisons survive wrapping.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Plant") // Returns "Plant not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       "FORBIDDEN",
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       "CONFLICT",
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       "RATE_LIMITED",
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// # Server Errors (5xx)

// Remote creates a 502 [AppError] for a failed backend operation.
//
// The message is the remote message verbatim. Callers that render it to the
// public should use [PublicMessage] instead.
func Remote(cause error) *AppError {
	message := "Remote operation failed"
	if cause != nil {
		message = cause.Error()
	}
	return &AppError{
		Code:       CodeRemote,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Cause:      cause,
	}
}

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never rendered.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// # Codes

const (
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeValidation   = "VALIDATION_ERROR"
	CodeRemote       = "REMOTE_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
)

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// HasCode reports whether err carries an [*AppError] with the given code.
func HasCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// Message returns the text an admin form shows for err.
// Remote and validation messages pass through. Unknown errors become the generic internal message.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if ae := As(err); ae != nil {
		return ae.Message
	}
	return Internal(err).Message
}

// PublicMessage returns the text a storefront page may show for err.
func PublicMessage(err error) string {
	ae := As(err)
	if ae == nil {
		return Internal(err).Message
	}
	switch ae.Code {
	case CodeNotFound, CodeValidation:
		return ae.Message
	default:
		return "Something went wrong. Please try again later."
	}
}

// Status returns the HTTP status a page should answer with for err.
func Status(err error) int {
	if ae := As(err); ae != nil && ae.HTTPStatus != 0 {
		return ae.HTTPStatus
	}
	return http.StatusInternalServerError
}
