// Package errors is the HTTP error envelope of the broker. Handlers return
// *AppError values (or anything FromError can translate) and WriteError
// renders them as JSON.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// AppError is the error shape every endpoint responds with.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // cause, logged but never sent
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// New creates an AppError.
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// WithDetail returns a copy with detail set; the predefined values stay untouched.
func (e *AppError) WithDetail(detail string) *AppError {
	c := *e
	c.Detail = detail
	return &c
}

// WithCause returns a copy carrying err as cause.
func (e *AppError) WithCause(err error) *AppError {
	c := *e
	c.Err = err
	return &c
}

// FromError returns err as *AppError, or a 500 carrying err as cause.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}

// =================================================================================
// PREDEFINED ERRORS
// =================================================================================

var (
	ErrBadRequest       = New(http.StatusBadRequest, "BAD_REQUEST", "The request is invalid.")
	ErrInvalidJSON      = New(http.StatusBadRequest, "INVALID_JSON", "The request body is not valid JSON.")
	ErrMissingParameter = New(http.StatusBadRequest, "MISSING_PARAMETER", "A required parameter is missing.")
	ErrInvalidState     = New(http.StatusBadRequest, "INVALID_STATE", "The login state is invalid, expired or already used.")
	ErrInvalidRedirect  = New(http.StatusBadRequest, "INVALID_REDIRECT_URI", "The redirect_uri is not registered for this broker.")

	ErrAuthenticationFailed = New(http.StatusUnauthorized, "AUTHENTICATION_FAILED", "Login with the identity provider failed.")

	ErrNotFound        = New(http.StatusNotFound, "NOT_FOUND", "The requested resource was not found.")
	ErrUnknownClient   = New(http.StatusNotFound, "UNKNOWN_CLIENT", "No client with the requested id is registered.")
	ErrUnknownProvider = New(http.StatusNotFound, "UNKNOWN_PROVIDER", "The identity provider is not supported.")

	ErrMethodNotAllowed = New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "The method is not allowed for this resource.")

	ErrInternalServerError = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred.")
	ErrServiceUnavailable  = New(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "The service is temporarily unavailable.")
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError renders err as JSON with its HTTP status.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}
