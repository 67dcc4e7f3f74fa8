package client

import (
	"errors"
	"fmt"
)

// Machine-readable error codes returned by the API or synthesized locally.
const (
	CodeUnauthorizedUser     = "UNAUTHORIZED_USER"
	CodeInvalidBookingStatus = "INVALID_BOOKING_STATUS"
	CodeAlreadyPaid          = "ALREADY_PAID"
	CodeNoToken              = "NO_TOKEN"
	CodeNetwork              = "NETWORK_ERROR"
)

// HTTPError is the single normalized error for non-2xx responses and transport
// failures. StatusCode is 0 when the request never produced a response.
type HTTPError struct {
	StatusCode int
	Message    string
	Errors     map[string]string
	Code       string
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// AsHTTPError extracts the HTTPError from err, if any.
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	if httpErr, ok := AsHTTPError(err); ok {
		return httpErr.StatusCode == code
	}
	return false
}

// IsCode returns true if err carries the given machine-readable code.
func IsCode(err error, code string) bool {
	if httpErr, ok := AsHTTPError(err); ok {
		return httpErr.Code == code
	}
	return false
}

// IsNetwork returns true if err is a transport failure with no HTTP response.
func IsNetwork(err error) bool {
	if httpErr, ok := AsHTTPError(err); ok {
		return httpErr.StatusCode == 0
	}
	return false
}
