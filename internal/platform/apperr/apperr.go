// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

/*
Package apperr defines the centralized error handling framework for the
Carvia client.

It provides a rich error type that bridges the gap between raw HTTP failures
and the human-readable messages the presentation layer renders inline.

Architecture:

  - AppError: A struct containing a machine-readable ErrorCode and a
    user-friendly message.
  - Extraction: The exact algorithm for flattening the backend's
    ProblemDetails-shaped validation bodies into one display string.
  - Taxonomy: Validation, Unauthorized, Connectivity, and NotFound/Conflict
    failures are distinguishable by Code.

Every error that leaves a data-access service is an [AppError] so that views
render consistent inline messages instead of raw HTTP codes.
*/
package apperr

import (
	"errors"
	"net/http"
)

// AppError is the canonical error type surfaced by the client's data layer.
//
// # Security
//
// The Cause field is for local logging only and is never rendered to the
// user, so transport-level details do not leak into the UI.
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "VALIDATION_ERROR").
	Code string `json:"code"`
	// Message is a human-readable description safe to render inline.
	Message string `json:"error"`
	// HTTPStatus is the response status code the failure was derived from.
	// Zero for failures that never reached the server.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for local logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR failures.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the display message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Client-Side Failure Constructors

// Validation creates an [AppError] carrying a flattened field-level message
// and, for locally detected failures, the per-field detail list.
func Validation(message string, details ...FieldError) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// Unauthorized creates an [AppError] for a missing or rejected credential.
// The message is always a "please sign in" style string, never a raw code.
func Unauthorized() *AppError {
	return &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Please sign in to continue",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Connectivity creates an [AppError] for a network-level failure.
// These are transient, retryable conditions; the cause is kept for logs.
func Connectivity(cause error) *AppError {
	return &AppError{
		Code:    "CONNECTIVITY",
		Message: "Could not reach the server. Check your connection and try again.",
		Cause:   cause,
	}
}

// NotConnected creates an [AppError] for a realtime invocation attempted
// while the hub connection is down. The call did NOT happen.
func NotConnected(cause error) *AppError {
	return &AppError{
		Code:    "NOT_CONNECTED",
		Message: "Realtime connection is not established",
		Cause:   cause,
	}
}

// Server creates an [AppError] from a backend-provided message, preserving
// the HTTP status for taxonomy decisions.
func Server(status int, message string) *AppError {
	code := "REQUEST_FAILED"
	switch status {
	case http.StatusNotFound:
		code = "NOT_FOUND"
	case http.StatusConflict:
		code = "CONFLICT"
	case http.StatusBadRequest:
		code = "VALIDATION_ERROR"
	}

	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

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

// Message returns the display message for any error, falling back to the
// generic string when the error carries no better one.
func Message(err error) string {
	if ae := As(err); ae != nil && ae.Message != "" {
		return ae.Message
	}
	return GenericFallback
}
