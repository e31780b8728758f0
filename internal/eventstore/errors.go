package eventstore

import "errors"

var (
	// ErrDuplicateEvent is returned when an event ID has already been
	// appended.
	ErrDuplicateEvent = errors.New("eventstore: duplicate event id")

	// ErrInvalidWindow is returned when a query's From bound is after
	// its To bound.
	ErrInvalidWindow = errors.New("eventstore: invalid time window")
)
