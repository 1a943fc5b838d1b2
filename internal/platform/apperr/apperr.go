// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the error taxonomy of the auth service.

Every error that leaves a service is an [AppError] carrying a machine-readable
code and the HTTP status it maps to. Credential failures, missing grants,
duplicate identities, unknown resources, broken provider configuration and
failed identity-provider calls each have their own constructor so callers can
tell them apart without string matching.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable codes, sent as the "code" field of error responses.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeValidation         = "VALIDATION_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeUnprocessable      = "UNPROCESSABLE"
	CodeInternal           = "INTERNAL_ERROR"
	CodeMisconfigured      = "MISCONFIGURED"
	CodeUpstream           = "UPSTREAM_FAILURE"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// AppError is the canonical error type of the auth API.
//
// Cause is for server-side logs and [errors.Is] matching only; it never
// reaches the client.
type AppError struct {
	Code       string       `json:"code"`
	Message    string       `json:"error"`
	HTTPStatus int          `json:"-"`
	Cause      error        `json:"-"`
	Details    []FieldError `json:"details,omitempty"`
}

// FieldError is one failed rule of a VALIDATION_ERROR.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap exposes Cause to [errors.Is] and [errors.As].
func (e *AppError) Unwrap() error { return e.Cause }

func newError(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// # Client Errors (4xx)

// NotFound reports a missing resource: apperr.NotFound("Role") reads "Role not found".
func NotFound(resource string) *AppError {
	return newError(CodeNotFound, http.StatusNotFound, resource+" not found")
}

// Unauthorized reports missing, wrong, expired or revoked credentials.
func Unauthorized(msg string) *AppError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, msg)
}

// Forbidden reports valid credentials lacking a required role.
func Forbidden(msg string) *AppError {
	return newError(CodeForbidden, http.StatusForbidden, msg)
}

// Conflict reports a uniqueness violation such as a taken email or role name.
func Conflict(msg string) *AppError {
	return newError(CodeConflict, http.StatusConflict, msg)
}

// ValidationError reports malformed input, optionally per field.
func ValidationError(msg string, details ...FieldError) *AppError {
	err := newError(CodeValidation, http.StatusBadRequest, msg)
	err.Details = details
	return err
}

// RateLimited reports an exhausted per-client budget.
func RateLimited(retryAfterSeconds int) *AppError {
	return newError(CodeRateLimited, http.StatusTooManyRequests,
		fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds))
}

// Unprocessable reports well-formed input that cannot be applied, like renaming a role.
func Unprocessable(msg string) *AppError {
	return newError(CodeUnprocessable, http.StatusUnprocessableEntity, msg)
}

// # Server Errors (5xx)

// Internal hides cause behind a generic message.
func Internal(cause error) *AppError {
	err := newError(CodeInternal, http.StatusInternalServerError, "An unexpected error occurred")
	err.Cause = cause
	return err
}

// Misconfigured reports a feature whose configuration is absent, such as an
// OAuth provider without client credentials.
func Misconfigured(msg string) *AppError {
	return newError(CodeMisconfigured, http.StatusInternalServerError, msg)
}

// Upstream reports a failed call to an identity provider.
func Upstream(msg string, cause error) *AppError {
	err := newError(CodeUpstream, http.StatusBadGateway, msg)
	err.Cause = cause
	return err
}

// ServiceUnavailable reports a backing store that cannot serve requests.
func ServiceUnavailable(msg string) *AppError {
	return newError(CodeServiceUnavailable, http.StatusServiceUnavailable, msg)
}

// # Helpers

// WithCause returns a copy of e carrying cause. Client-facing fields are unchanged.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// IsAppError reports whether err's chain contains an [*AppError].
func IsAppError(err error) bool {
	return As(err) != nil
}

// As extracts the first [*AppError] from err's chain, or nil.
func As(err error) *AppError {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError
	}
	return nil
}

// HasCode reports whether err's chain contains an [*AppError] with code.
func HasCode(err error, code string) bool {
	appError := As(err)
	return appError != nil && appError.Code == code
}
