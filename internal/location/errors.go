package location

import "errors"

// Domain errors for the location package.
var (
	// ErrLocationNotFound is returned when a location ID does not exist.
	ErrLocationNotFound = errors.New("location: not found")

	// ErrAreaNotFound is returned when an area ID does not exist.
	ErrAreaNotFound = errors.New("location: area not found")
)
