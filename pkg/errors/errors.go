package errors

import (
	"fmt"
	"net/http"
)

// AppError is the error type that crosses component boundaries. The UI layer
// only ever sees Message; Code and HTTPStatus drive the API edge.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetails(details any) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		Details:    details,
		HTTPStatus: e.HTTPStatus,
		Err:        e.Err,
	}
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		Details:    e.Details,
		HTTPStatus: e.HTTPStatus,
		Err:        err,
	}
}

// Is matches on Code so wrapped sentinels compare with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrValidation = &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidSymbol = &AppError{
		Code:       "INVALID_SYMBOL",
		Message:    "Invalid stock symbol",
		HTTPStatus: http.StatusNotFound,
	}

	ErrQuoteUnavailable = &AppError{
		Code:       "QUOTE_UNAVAILABLE",
		Message:    "Failed to fetch stock data",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrHoldingNotFound = &AppError{
		Code:       "HOLDING_NOT_FOUND",
		Message:    "Holding not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrStore = &AppError{
		Code:       "STORE_ERROR",
		Message:    "Failed to save portfolio changes",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrRateLimited = &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Too many requests, please try again later",
		HTTPStatus: http.StatusTooManyRequests,
	}

	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
	}
)
