package alarmdotcom

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors for the Alarm.com package.
var (
	// ErrRequestFailed is returned when a vendor API request fails, either
	// in transport or with a non-2xx status.
	ErrRequestFailed = errors.New("alarmdotcom: request failed")

	// ErrUnauthorized is returned alongside ErrRequestFailed for 401 and 403 responses.
	ErrUnauthorized = errors.New("alarmdotcom: unauthorized")

	// ErrInvalidResponse is returned when a response body cannot be decoded.
	ErrInvalidResponse = errors.New("alarmdotcom: invalid response")
)

// APIError describes a non-2xx response from the vendor API.
//
// errors.Is matches ErrRequestFailed for every APIError, and ErrUnauthorized
// when StatusCode is 401 or 403.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("alarmdotcom: %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap exposes the sentinel errors for errors.Is.
func (e *APIError) Unwrap() []error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return []error{ErrRequestFailed, ErrUnauthorized}
	}
	return []error{ErrRequestFailed}
}
