package errors

import "errors"

var (
	ErrNotFound = errors.New("profile not found")

	ErrInvalidID = errors.New("invalid profile ID format")
)
