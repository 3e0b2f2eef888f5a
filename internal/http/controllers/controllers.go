// Package controllers holds the HTTP handlers of the broker. Each controller
// depends on a narrow service interface so it can be tested with fakes.
package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bremersee/authman/internal/clientdetails"
	"github.com/bremersee/authman/internal/domain/repository"
	httperrors "github.com/bremersee/authman/internal/http/errors"
	"github.com/bremersee/authman/internal/observability/logger"
	"github.com/bremersee/authman/internal/social"
)

// toAppError maps domain errors to the HTTP envelope.
func toAppError(err error) *httperrors.AppError {
	var appErr *httperrors.AppError
	var authErr *social.OAuth2AuthenticationError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, social.ErrUnknownProvider):
		return httperrors.ErrUnknownProvider.WithCause(err)
	case errors.Is(err, social.ErrStateInvalid),
		errors.Is(err, social.ErrStateExpired),
		errors.Is(err, social.ErrStateReplayed),
		errors.Is(err, social.ErrStateProvider):
		return httperrors.ErrInvalidState.WithCause(err)
	case errors.As(err, &authErr):
		return httperrors.ErrAuthenticationFailed.WithCause(err)
	case clientdetails.IsClientNotFound(err):
		return httperrors.ErrUnknownClient.WithCause(err)
	case repository.IsNotFound(err):
		return httperrors.ErrNotFound.WithCause(err)
	case errors.Is(err, repository.ErrInvalidInput):
		return httperrors.ErrBadRequest.WithCause(err)
	default:
		return httperrors.ErrInternalServerError.WithCause(err)
	}
}

// writeError logs the cause and renders the envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := toAppError(err)
	log := logger.From(r.Context()).With(logger.Layer("controller"))
	if appErr.HTTPStatus >= 500 {
		log.Error("request error", logger.String("code", appErr.Code), logger.Err(err))
	} else {
		log.Debug("request rejected", logger.String("code", appErr.Code), logger.Err(err))
	}
	httperrors.WriteError(w, appErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
