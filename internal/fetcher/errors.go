package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorType represents the category of error that occurred while fetching or
// interpreting a response
type ErrorType string

const (
	// ErrorTypeNetwork indicates a network-level error (connection refused, DNS, etc.)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit indicates the request was rejected due to rate limiting (HTTP 429)
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeServer indicates a server error (HTTP 5xx)
	ErrorTypeServer ErrorType = "server"
	// ErrorTypeClient indicates a client error (HTTP 4xx except 429)
	ErrorTypeClient ErrorType = "client"
	// ErrorTypeTimeout indicates the request timed out
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeUnknown indicates an error of unknown type
	ErrorTypeUnknown ErrorType = "unknown"

	// ErrorTypeAPI indicates the decoded payload itself reported an error
	ErrorTypeAPI ErrorType = "api"
	// ErrorTypeSchema indicates the decoded payload matched none of the known shapes
	ErrorTypeSchema ErrorType = "schema"
	// ErrorTypeConfiguration indicates the caller asked for something unsupported
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeDecode indicates the response body was not valid JSON
	ErrorTypeDecode ErrorType = "decode"
)

// IsTransport reports whether the type describes a failure of the transport
// itself, as opposed to a problem with what it delivered.
func (t ErrorType) IsTransport() bool {
	switch t {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServer,
		ErrorTypeClient, ErrorTypeTimeout, ErrorTypeUnknown:
		return true
	}
	return false
}

// FetchError represents a structured error from a fetch operation
type FetchError struct {
	Type       ErrorType
	Retryable  bool
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// IsType reports whether err wraps a FetchError of the given type.
func IsType(err error, t ErrorType) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Type == t
	}
	return false
}

// NewNetworkError creates a network error
func NewNetworkError(cause error) *FetchError {
	return &FetchError{
		Type:      ErrorTypeNetwork,
		Retryable: true,
		Message:   "network request failed",
		Cause:     cause,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeRateLimit,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    "rate limit exceeded",
	}
}

// NewServerError creates a server error
func NewServerError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeServer,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    "server returned an error",
	}
}

// NewClientError creates a client error
func NewClientError(statusCode int, message string) *FetchError {
	return &FetchError{
		Type:       ErrorTypeClient,
		Retryable:  false,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(cause error) *FetchError {
	return &FetchError{
		Type:      ErrorTypeTimeout,
		Retryable: true,
		Message:   "request timed out",
		Cause:     cause,
	}
}

// NewSchemaError creates an error for a payload of unrecognized shape
func NewSchemaError(message string) *FetchError {
	return &FetchError{
		Type:    ErrorTypeSchema,
		Message: message,
	}
}

// NewConfigurationError creates an error for an unsupported request
func NewConfigurationError(message string) *FetchError {
	return &FetchError{
		Type:    ErrorTypeConfiguration,
		Message: message,
	}
}

// NewDecodeError creates an error for a body that is not valid JSON
func NewDecodeError(message string, cause error) *FetchError {
	return &FetchError{
		Type:    ErrorTypeDecode,
		Message: message,
		Cause:   cause,
	}
}

// ClassifyHTTPError classifies an HTTP status code into an appropriate FetchError
func ClassifyHTTPError(statusCode int) *FetchError {
	switch {
	case statusCode == 429:
		return NewRateLimitError(statusCode)
	case statusCode >= 500:
		return NewServerError(statusCode)
	case statusCode >= 400:
		return NewClientError(statusCode, fmt.Sprintf("client error: HTTP %d", statusCode))
	default:
		return &FetchError{
			Type:       ErrorTypeUnknown,
			Retryable:  false,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		}
	}
}

// ClassifyRequestError turns an error returned by the HTTP client into a FetchError
func ClassifyRequestError(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(err)
	}

	return NewNetworkError(err)
}
