package errors

import (
	"fmt"
	"net/http"
)

// AppError es el error estándar que viaja hasta la respuesta HTTP.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // causa original, solo para logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func Wrap(err error, status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// FromError convierte cualquier error en *AppError; lo desconocido es 500.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}

// WithDetail devuelve una copia (los predefinidos son globales y no se mutan).
func (e *AppError) WithDetail(detail string) *AppError {
	n := *e
	n.Detail = detail
	return &n
}

// WithMessage devuelve una copia con otro mensaje.
func (e *AppError) WithMessage(msg string) *AppError {
	n := *e
	n.Message = msg
	return &n
}

// WithCause devuelve una copia con la causa original.
func (e *AppError) WithCause(err error) *AppError {
	n := *e
	n.Err = err
	return &n
}

// ---- 400 ----

var (
	ErrMalformedInput = &AppError{
		Code:       "MALFORMED_INPUT",
		Message:    "Invalid base64 input",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "Request body is not valid JSON",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrMissingFields = &AppError{
		Code:       "MISSING_FIELDS",
		Message:    "Missing required fields",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUnsupportedMedia = &AppError{
		Code:       "UNSUPPORTED_MEDIA_TYPE",
		Message:    "Content-Type must be application/json",
		HTTPStatus: http.StatusUnsupportedMediaType,
	}
)

// ---- 401 ----

var (
	ErrTokenMissing = &AppError{
		Code:       "TOKEN_MISSING",
		Message:    "Not authenticated",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenExpired = &AppError{
		Code:       "TOKEN_EXPIRED",
		Message:    "Token has expired",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenInvalid = &AppError{
		Code:       "TOKEN_INVALID",
		Message:    "Invalid token",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrAudienceMismatch = &AppError{
		Code:       "AUDIENCE_MISMATCH",
		Message:    "Invalid audience",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrVerificationFailed = &AppError{
		Code:       "VERIFICATION_FAILED",
		Message:    "Token verification failed",
		HTTPStatus: http.StatusUnauthorized,
	}
)

// ---- 403 ----

var (
	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Invalid application credentials",
		HTTPStatus: http.StatusForbidden,
	}
)

// ---- 404 / 405 ----

var (
	ErrRouteNotFound = &AppError{
		Code:       "ROUTE_NOT_FOUND",
		Message:    "Route not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "Method not allowed for this resource",
		HTTPStatus: http.StatusMethodNotAllowed,
	}
)

// ---- 429 ----

var (
	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, try again later",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

// ---- 500 ----

var (
	ErrSigningKeyMissing = &AppError{
		Code:       "SIGNING_KEY_MISSING",
		Message:    "Server configuration error: Missing private key",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrVerificationKeyMissing = &AppError{
		Code:       "VERIFICATION_KEY_MISSING",
		Message:    "Server configuration error: Missing public key",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrIssuanceFailed = &AppError{
		Code:       "ISSUANCE_FAILED",
		Message:    "Token generation failed",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}
)
