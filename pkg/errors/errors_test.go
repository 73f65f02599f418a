package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			err:      ErrInvalidSymbol,
			expected: "INVALID_SYMBOL: Invalid stock symbol",
		},
		{
			name:     "with wrapped error",
			err:      ErrStore.WithError(errors.New("connection refused")),
			expected: "STORE_ERROR: Failed to save portfolio changes (connection refused)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	innerErr := errors.New("inner error")
	appErr := ErrQuoteUnavailable.WithError(innerErr)

	if appErr.Unwrap() != innerErr {
		t.Errorf("AppError.Unwrap() did not return the wrapped error")
	}

	if ErrUnauthorized.Unwrap() != nil {
		t.Errorf("AppError.Unwrap() should return nil when no error is wrapped")
	}
}

func TestAppError_Is(t *testing.T) {
	wrapped := ErrInvalidSymbol.WithError(errors.New("code 400 from provider"))

	if !errors.Is(wrapped, ErrInvalidSymbol) {
		t.Errorf("wrapped sentinel should match with errors.Is")
	}
	if errors.Is(wrapped, ErrQuoteUnavailable) {
		t.Errorf("different codes should not match")
	}

	twiceWrapped := fmt.Errorf("fetching AAPL: %w", wrapped)
	if !errors.Is(twiceWrapped, ErrInvalidSymbol) {
		t.Errorf("fmt-wrapped sentinel should still match")
	}
}

func TestAppError_WithDetails(t *testing.T) {
	details := map[string]string{"field": "quantity", "reason": "must be positive"}
	appErr := ErrValidation.WithDetails(details)

	if appErr.Details == nil {
		t.Errorf("WithDetails should set Details")
	}
	if appErr.Code != ErrValidation.Code {
		t.Errorf("WithDetails should preserve Code")
	}
	if appErr.HTTPStatus != http.StatusBadRequest {
		t.Errorf("WithDetails should preserve HTTPStatus")
	}
}

func TestAppError_WithError(t *testing.T) {
	innerErr := errors.New("timeout")
	appErr := ErrQuoteUnavailable.WithError(innerErr)

	if appErr.Err != innerErr {
		t.Errorf("WithError should set Err")
	}
	if appErr.Code != ErrQuoteUnavailable.Code {
		t.Errorf("WithError should preserve Code")
	}
}
