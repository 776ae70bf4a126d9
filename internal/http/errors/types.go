// Package errors defines the stable error surface of the HTTP API.
// Codes are part of the contract; messages can change, codes cannot.
// Upstream provider payloads never leak through this layer.
package errors

import (
	"fmt"
	"net/http"
)

// AppError is the canonical application error shape.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // original cause, logged and never serialized
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail returns a copy carrying extra client-visible detail.
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithCause returns a copy carrying the original error for logs.
func (e *AppError) WithCause(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// FromError coerces any error into an AppError, defaulting to the
// generic internal error so no raw message reaches a client.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternal.WithCause(err)
}

// ─── 400 ───

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "The request is malformed or missing required parameters.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "The request body is not valid JSON.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUnknownProvider = &AppError{
		Code:       "UNKNOWN_PROVIDER",
		Message:    "The requested identity provider is not supported.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrProviderDisabled = &AppError{
		Code:       "PROVIDER_DISABLED",
		Message:    "The identity provider is not enabled for this tenant.",
		HTTPStatus: http.StatusBadRequest,
	}
)

// ─── 401 ───

var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidAPIKey = &AppError{
		Code:       "INVALID_API_KEY",
		Message:    "The tenant API key is missing or invalid.",
		HTTPStatus: http.StatusUnauthorized,
	}

	// The state token is the credential on the callback route, so a bad
	// one is an authentication failure, not a malformed request.
	ErrInvalidState = &AppError{
		Code:       "INVALID_STATE",
		Message:    "The state parameter is unknown, expired or already used.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidExchangeCode = &AppError{
		Code:       "INVALID_EXCHANGE_CODE",
		Message:    "The exchange code is unknown, expired or already used.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidRefreshToken = &AppError{
		Code:       "INVALID_REFRESH_TOKEN",
		Message:    "The refresh token is invalid or no longer active.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrRefreshReplayed = &AppError{
		Code:       "REFRESH_TOKEN_REUSED",
		Message:    "The refresh token was already rotated. Active sessions were revoked.",
		HTTPStatus: http.StatusUnauthorized,
	}
)

// ─── 404 ───

var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "The requested resource was not found.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrRouteNotFound = &AppError{
		Code:       "ROUTE_NOT_FOUND",
		Message:    "The requested route does not exist.",
		HTTPStatus: http.StatusNotFound,
	}
)

// ─── 405 ───

var ErrMethodNotAllowed = &AppError{
	Code:       "METHOD_NOT_ALLOWED",
	Message:    "The HTTP method is not allowed for this resource.",
	HTTPStatus: http.StatusMethodNotAllowed,
}

// ─── 409 ───

var (
	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "The request conflicts with the current state.",
		HTTPStatus: http.StatusConflict,
	}

	ErrEmailOwnershipUnverified = &AppError{
		Code:       "EMAIL_OWNERSHIP_UNVERIFIED",
		Message:    "An account with this email exists but its ownership is not verified.",
		HTTPStatus: http.StatusConflict,
	}
)

// ─── 5xx ───

var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "An internal error occurred.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrProviderUnavailable = &AppError{
		Code:       "PROVIDER_UNAVAILABLE",
		Message:    "The identity provider rejected the request or did not respond.",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "The service is temporarily unavailable.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
