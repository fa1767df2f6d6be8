package snow

import (
	"fmt"
)

type ErrorCode string

const (
	ErrorCodeAuth             ErrorCode = "AUTH_ERROR"
	ErrorCodeAuthExpired      ErrorCode = "AUTH_EXPIRED"
	ErrorCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrorCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrorCodeEndpointNotFound ErrorCode = "ENDPOINT_NOT_FOUND"
	ErrorCodeAPI              ErrorCode = "API_ERROR"
	ErrorCodeTimeout          ErrorCode = "TIMEOUT"
	ErrorCodeNetwork          ErrorCode = "NETWORK_ERROR"
	ErrorCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrorCodeUnknown          ErrorCode = "UNKNOWN_ERROR"
)

type APIError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Context    map[string]any
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%s] %s (status: %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

func (e *APIError) WithStatus(status int) *APIError {
	e.StatusCode = status
	return e
}

func (e *APIError) WithContext(key string, value any) *APIError {
	e.Context[key] = value
	return e
}
