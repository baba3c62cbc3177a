package reducer

import (
	"errors"
	"fmt"
)

var ErrInvalidInput = errors.New("polyreduce: only polygon input is accepted")

// InvalidInputError is returned before any geometry work is done when the
// input is not a usable single polygon.
type InvalidInputError struct {
	GeometryType string
	Reason       string
}

func (e *InvalidInputError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: got %s, %s", ErrInvalidInput, e.GeometryType, e.Reason)
	}
	return fmt.Sprintf("%s: got %s", ErrInvalidInput, e.GeometryType)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}
