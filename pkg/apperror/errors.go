package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Identity & Credentials (AUTH) ----

func ErrUnauthorized() *AppError {
	return New("AUTH_001", "Missing or malformed credential", http.StatusUnauthorized)
}

func ErrInvalidCredential() *AppError {
	return New("AUTH_002", "Invalid credential", http.StatusUnauthorized)
}

// ---- Key Registry (KEY) ----

func ErrKeyQuotaExceeded(max int) *AppError {
	return New("KEY_001", fmt.Sprintf("API key quota reached (max %d); revoke a key first", max), http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New("KEY_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Billing (BIL) ----

func ErrInsufficientFunds() *AppError {
	return New("BIL_001", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

// ErrAlreadySettled indicates a duplicate settlement attempt for one
// authorization. A duplicate means a caller bug, so it surfaces as a
// server error rather than a client error.
func ErrAlreadySettled(authID string) *AppError {
	return New("BIL_002", fmt.Sprintf("authorization %s already settled or voided", authID), http.StatusInternalServerError)
}

func ErrInvalidAmount() *AppError {
	return New("BIL_003", "Invalid amount", http.StatusBadRequest)
}

func ErrUnknownModel(model string) *AppError {
	return New("BIL_004", fmt.Sprintf("unknown model %q", model), http.StatusBadRequest)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrUpstreamFailure(err error) *AppError {
	return Wrap("SYS_002", "Upstream model invocation failed", http.StatusBadGateway, err)
}

// Validation returns a BIL_003-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("BIL_003", message, http.StatusBadRequest)
}
