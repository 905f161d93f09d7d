package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("room not found")

	ErrInvalidID = errors.New("invalid room ID format")

	ErrHasActiveBookings = errors.New("room has active bookings")
)

// ActiveBookingsError is returned by Delete when confirmed bookings still
// hold the room. It matches ErrHasActiveBookings.
type ActiveBookingsError struct {
	Count int64
}

func (e *ActiveBookingsError) Error() string {
	return fmt.Sprintf("room has %d active booking(s)", e.Count)
}

func (e *ActiveBookingsError) Is(target error) bool {
	return target == ErrHasActiveBookings
}
