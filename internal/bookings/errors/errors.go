package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrOverlap means a confirmed booking already covers part of the range.
	ErrOverlap = errors.New("booking overlaps an existing confirmed booking")

	ErrRoomNotFound = errors.New("room not found")

	ErrAlreadyCancelled = errors.New("booking already cancelled")

	// ErrLockTimeout means the room stayed locked by other writers for the
	// whole wait budget.
	ErrLockTimeout = errors.New("timed out waiting for room lock")
)
