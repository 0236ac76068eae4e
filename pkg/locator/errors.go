package locator

import (
	"errors"
	"fmt"
)

var (
	ErrLatitudeTooSmall  = errors.New("latitude cannot be less than -90.0 degrees")
	ErrLatitudeTooLarge  = errors.New("latitude cannot be greater than 90.0 degrees")
	ErrLongitudeTooSmall = errors.New("longitude cannot be less than -180.0 degrees")
	ErrLongitudeTooLarge = errors.New("longitude cannot be greater than 180.0 degrees")
)

// RangeError reports a coordinate outside its valid range.
// It unwraps to one of the Err* sentinels above.
type RangeError struct {
	Field string
	Value float64
	Bound float64
	Err   error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v (got %g)", e.Err, e.Value)
}

func (e *RangeError) Unwrap() error {
	return e.Err
}
