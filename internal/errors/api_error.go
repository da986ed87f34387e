package errors

import (
	stderrors "errors"
	"net/http"
)

type APIError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func New(status int, code, message string) *APIError {
	return &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func Internal(message string) *APIError {
	if message == "" {
		message = "internal server error"
	}
	return New(http.StatusInternalServerError, "internal_error", message)
}

func BadRequest(code, message string) *APIError {
	return New(http.StatusBadRequest, code, message)
}

func Unauthorized(message string) *APIError {
	if message == "" {
		message = "unauthorized"
	}
	return New(http.StatusUnauthorized, "unauthorized", message)
}

func Forbidden(message string) *APIError {
	if message == "" {
		message = "forbidden"
	}
	return New(http.StatusForbidden, "forbidden", message)
}

func NotFound(code, message string) *APIError {
	return New(http.StatusNotFound, code, message)
}

func Conflict(code, message string, details interface{}) *APIError {
	err := New(http.StatusConflict, code, message)
	err.Details = details
	return err
}

func ServiceUnavailable(code, message string) *APIError {
	return New(http.StatusServiceUnavailable, code, message)
}

// Core error kinds handed to every consumer of the tracker.
const (
	CodeInvalidTransition = "invalid_transition"
	CodeNoActiveSession   = "no_active_session"
	CodeNotRevokable      = "not_revokable"
	CodeStorageError      = "storage_error"
)

func InvalidTransition(message string, details interface{}) *APIError {
	return Conflict(CodeInvalidTransition, message, details)
}

func NoActiveSession(message string) *APIError {
	return NotFound(CodeNoActiveSession, message)
}

func NotRevokable(message string, details interface{}) *APIError {
	return Conflict(CodeNotRevokable, message, details)
}

func Storage(message string) *APIError {
	if message == "" {
		message = "storage unavailable"
	}
	return ServiceUnavailable(CodeStorageError, message)
}

// Is reports whether err is an APIError with the given code.
func Is(err error, code string) bool {
	var apiErr *APIError
	if !stderrors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == code
}
