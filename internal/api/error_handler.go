package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes. These are security
	// decisions, never silently retried or swallowed.
	switch {
	case errors.Is(err, domain.ErrEmailExists):
		return http.StatusConflict, "email already registered"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, domain.ErrAccountSuspended):
		return http.StatusUnauthorized, "account suspended"
	case errors.Is(err, domain.ErrOTPPending):
		return http.StatusUnauthorized, "verification pending"
	case errors.Is(err, domain.ErrOTPNotPending),
		errors.Is(err, domain.ErrOTPExpired),
		errors.Is(err, domain.ErrOTPMismatch),
		errors.Is(err, domain.ErrResetNotRequested),
		errors.Is(err, domain.ErrResetCodeExpired),
		errors.Is(err, domain.ErrResetCodeMismatch):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidStatusChange):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "too many login attempts"
	case errors.Is(err, domain.ErrPrincipalNotFound):
		return http.StatusNotFound, "principal not found"
	case errors.Is(err, domain.ErrCacheEntryNotFound):
		return http.StatusNotFound, "cache entry not found"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "access forbidden"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
