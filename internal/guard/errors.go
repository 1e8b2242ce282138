package guard

import (
	"errors"
	"fmt"
)

// Common guard errors.
var (
	// ErrDepthExceeded indicates the in-flight execution bound is
	// saturated.
	ErrDepthExceeded = errors.New("maximum recursion depth exceeded")

	// ErrMalformed indicates an argument payload that fails to parse.
	ErrMalformed = errors.New("malformed arguments")
)

// MalformedError wraps ErrMalformed with the underlying parse failure.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("invalid JSON arguments: %v", e.Err)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformed
}

// IsMalformed checks if an error is an argument parse error.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}

// IsDepthExceeded checks if an error is a saturation error.
func IsDepthExceeded(err error) bool {
	return errors.Is(err, ErrDepthExceeded)
}
