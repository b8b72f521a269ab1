package hass

import "errors"

// Domain errors for the Home Assistant platform.
var (
	// ErrEntityNotFound is returned when a unique ID is not registered.
	ErrEntityNotFound = errors.New("hass: entity not found")

	// ErrInvalidPayload is returned when a command payload is not a number.
	ErrInvalidPayload = errors.New("hass: invalid payload")

	// ErrStopped is returned for calls made after Stop.
	ErrStopped = errors.New("hass: platform stopped")
)
