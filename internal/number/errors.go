package number

import "errors"

// Domain errors for the number platform.
var (
	// ErrValueConversion is returned by Refresh when the vendor's current
	// value cannot be read as a finite number.
	ErrValueConversion = errors.New("number: current value is not numeric")

	// ErrInvalidValue is returned by SetNativeValue for NaN, infinities and
	// values outside the integer range.
	ErrInvalidValue = errors.New("number: invalid value")
)
