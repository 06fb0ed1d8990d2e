package booking

import (
	"errors"
	"fmt"
)

var (
	ErrSlotUnavailable   = errors.New("slot is not available")
	ErrInvalidTransition = errors.New("only pending bookings can be approved or rejected")
	ErrNotFound          = errors.New("booking not found")
	// ErrValidation wraps every input problem; the message of the wrapping
	// error is safe to show to the caller.
	ErrValidation = errors.New("validation failed")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
