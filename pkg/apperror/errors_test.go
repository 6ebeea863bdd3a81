package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("BIL_001", "Insufficient funds", http.StatusPaymentRequired),
			expected: "[BIL_001] Insufficient funds",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("BIL_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestAuthErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"Unauthorized", ErrUnauthorized(), "AUTH_001", 401},
		{"InvalidCredential", ErrInvalidCredential(), "AUTH_002", 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestKeyErrors(t *testing.T) {
	quota := ErrKeyQuotaExceeded(2)
	assert.Equal(t, "KEY_001", quota.Code)
	assert.Equal(t, 409, quota.HTTPStatus)
	assert.Contains(t, quota.Message, "max 2")

	notFound := ErrNotFound("API key")
	assert.Equal(t, "KEY_002", notFound.Code)
	assert.Equal(t, 404, notFound.HTTPStatus)
	assert.Contains(t, notFound.Message, "API key")
}

func TestBillingErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InsufficientFunds", ErrInsufficientFunds(), "BIL_001", 402},
		{"AlreadySettled", ErrAlreadySettled("auth-1"), "BIL_002", 500},
		{"InvalidAmount", ErrInvalidAmount(), "BIL_003", 400},
		{"UnknownModel", ErrUnknownModel("gpt-9"), "BIL_004", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	sysErr := InternalError(inner)
	assert.Equal(t, "SYS_001", sysErr.Code)
	assert.Equal(t, 500, sysErr.HTTPStatus)
	assert.True(t, errors.Is(sysErr, inner))

	upErr := ErrUpstreamFailure(inner)
	assert.Equal(t, "SYS_002", upErr.Code)
	assert.Equal(t, 502, upErr.HTTPStatus)
}

func TestRateLimitError(t *testing.T) {
	err := ErrRateLimitExceeded()
	assert.Equal(t, "RATE_001", err.Code)
	assert.Equal(t, 429, err.HTTPStatus)
}
