package http

import (
	"net/http"
	"strconv"
)

// Machine-readable error codes carried in ErrorResponse.Error
const (
	CodeBadRequest   = "bad_request"
	CodeValidation   = "validation_error"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeVaultLocked  = "vault_locked"
	CodeRateLimited  = "rate_limit_exceeded"
	CodePINLockedOut = "pin_locked_out"
	CodeInternal     = "internal_error"
)

// ErrorResponse is the body of every failed request. Success is always false
// so clients can branch on one field for both outcomes.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes an ErrorResponse. Like every vault response it is not
// cacheable.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: code, Message: message})
}

func errorWriter(status int, code string) func(http.ResponseWriter, string) {
	return func(w http.ResponseWriter, message string) {
		WriteError(w, status, code, message)
	}
}

var (
	WriteBadRequest      = errorWriter(http.StatusBadRequest, CodeBadRequest)
	WriteValidationError = errorWriter(http.StatusBadRequest, CodeValidation)
	WriteUnauthorized    = errorWriter(http.StatusUnauthorized, CodeUnauthorized)
	WriteNotFound        = errorWriter(http.StatusNotFound, CodeNotFound)
	WriteConflict        = errorWriter(http.StatusConflict, CodeConflict)
	WriteLocked          = errorWriter(http.StatusLocked, CodeVaultLocked)
	WriteTooManyRequests = errorWriter(http.StatusTooManyRequests, CodeRateLimited)
	WriteInternalError   = errorWriter(http.StatusInternalServerError, CodeInternal)
)

// WriteLockedOut is a 429 with Retry-After set to the remaining lockout.
func WriteLockedOut(w http.ResponseWriter, message string, retryAfterSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	WriteError(w, http.StatusTooManyRequests, CodePINLockedOut, message)
}
