package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrorType classifies collaborator failures.
type ErrorType string

const (
	ErrorTypeAuth     ErrorType = "auth"
	ErrorTypeQuota    ErrorType = "quota"
	ErrorTypeTimeout  ErrorType = "timeout"
	ErrorTypeEndpoint ErrorType = "endpoint"
	ErrorTypeResponse ErrorType = "malformed_response"
	ErrorTypeUnknown  ErrorType = "unknown"
)

// Error is a classified collaborator failure.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds a classified error.
func NewError(t ErrorType, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}

// ClassifyError maps transport and API failures onto an *Error.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorTypeTimeout, "request timeout", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		e := NewError(classifyStatus(apiErr.HTTPStatusCode), apiErr.Message, nil)
		e.StatusCode = apiErr.HTTPStatusCode
		return e
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		e := NewError(classifyStatus(reqErr.HTTPStatusCode), "request failed", reqErr.Err)
		e.StatusCode = reqErr.HTTPStatusCode
		return e
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "deadline exceeded"):
		return NewError(ErrorTypeTimeout, "request timeout", err)
	case strings.Contains(lower, "connection refused"), strings.Contains(lower, "no such host"):
		return NewError(ErrorTypeEndpoint, "connection failed", err)
	}
	return NewError(ErrorTypeUnknown, "llm error", err)
}

func classifyStatus(status int) ErrorType {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorTypeAuth
	case status == http.StatusTooManyRequests:
		return ErrorTypeQuota
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case status >= 500 || status == http.StatusNotFound:
		return ErrorTypeEndpoint
	default:
		return ErrorTypeUnknown
	}
}

// TypeOf extracts the ErrorType from err.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}
