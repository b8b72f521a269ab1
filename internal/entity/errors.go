package entity

import "errors"

// Domain errors for the entity package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, entity.ErrEntityNotFound) {
//	    // handle not found case
//	}
var (
	// ErrEntityNotFound is returned when a unique ID does not exist.
	ErrEntityNotFound = errors.New("entity: not found")

	// ErrInvalidEntity is returned when a record is missing required fields.
	ErrInvalidEntity = errors.New("entity: invalid")
)
